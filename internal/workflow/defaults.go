package workflow

import m "github.com/p-blackswan/safety-engine/internal/models"

type edges = map[m.Status][]m.Status

// DefaultGraphs returns the built-in graph of every module.
func DefaultGraphs() []Graph {
	return []Graph{
		{
			Module: m.ModulePTW,
			Edges: edges{
				m.StatusDraft:     {m.StatusSubmitted, m.StatusCancelled},
				m.StatusSubmitted: {m.StatusApproved, m.StatusRejected},
				m.StatusApproved:  {m.StatusActive, m.StatusCancelled},
				m.StatusActive:    {m.StatusClosed, m.StatusStopped, m.StatusExpired},
				m.StatusStopped:   {m.StatusActive, m.StatusClosed},
			},
			Canonical: []m.Status{m.StatusDraft, m.StatusSubmitted, m.StatusApproved, m.StatusActive, m.StatusClosed},
			Forward:   map[m.Status]m.Status{m.StatusStopped: m.StatusActive},
			Anchors:   map[m.Status]m.Status{m.StatusStopped: m.StatusActive},
		},
		{
			// rca_submitted and actions_assigned are an optional detour between
			// investigation and closure; the short path stays legal.
			Module: m.ModuleIMS,
			Edges: edges{
				m.StatusOpen:            {m.StatusInvestigating},
				m.StatusInvestigating:   {m.StatusRCASubmitted, m.StatusPendingClosure},
				m.StatusRCASubmitted:    {m.StatusActionsAssigned, m.StatusInvestigating},
				m.StatusActionsAssigned: {m.StatusPendingClosure},
				m.StatusPendingClosure:  {m.StatusClosed, m.StatusInvestigating},
			},
			Canonical: []m.Status{m.StatusOpen, m.StatusInvestigating, m.StatusPendingClosure, m.StatusClosed},
			Forward: map[m.Status]m.Status{
				m.StatusRCASubmitted:    m.StatusActionsAssigned,
				m.StatusActionsAssigned: m.StatusPendingClosure,
			},
			Anchors: map[m.Status]m.Status{
				m.StatusRCASubmitted:    m.StatusInvestigating,
				m.StatusActionsAssigned: m.StatusInvestigating,
			},
		},
		{
			Module: m.ModuleHAZOP,
			Edges: edges{
				m.StatusDraft:       {m.StatusInProgress, m.StatusCancelled},
				m.StatusInProgress:  {m.StatusUnderReview},
				m.StatusUnderReview: {m.StatusApproved, m.StatusInProgress},
				m.StatusApproved:    {m.StatusClosed},
			},
			Canonical: []m.Status{m.StatusDraft, m.StatusInProgress, m.StatusUnderReview, m.StatusApproved, m.StatusClosed},
		},
		{
			Module: m.ModuleHIRA,
			Edges: edges{
				m.StatusDraft:       {m.StatusSubmitted, m.StatusCancelled},
				m.StatusSubmitted:   {m.StatusApproved, m.StatusRejected},
				m.StatusApproved:    {m.StatusActive},
				m.StatusActive:      {m.StatusUnderReview, m.StatusClosed},
				m.StatusUnderReview: {m.StatusActive, m.StatusClosed},
			},
			Canonical: []m.Status{m.StatusDraft, m.StatusSubmitted, m.StatusApproved, m.StatusActive, m.StatusClosed},
			Forward:   map[m.Status]m.Status{m.StatusUnderReview: m.StatusActive},
			Anchors:   map[m.Status]m.Status{m.StatusUnderReview: m.StatusActive},
		},
		{
			Module: m.ModuleBBS,
			Edges: edges{
				m.StatusOpen:        {m.StatusAssigned, m.StatusClosed},
				m.StatusAssigned:    {m.StatusActionTaken},
				m.StatusActionTaken: {m.StatusClosed, m.StatusAssigned},
			},
			Canonical: []m.Status{m.StatusOpen, m.StatusAssigned, m.StatusActionTaken, m.StatusClosed},
		},
		{
			Module: m.ModuleAudit,
			Edges: edges{
				m.StatusPlanned:      {m.StatusInProgress, m.StatusCancelled},
				m.StatusInProgress:   {m.StatusFindingsOpen, m.StatusCompleted},
				m.StatusFindingsOpen: {m.StatusCompleted},
				m.StatusCompleted:    {m.StatusClosed},
			},
			Canonical: []m.Status{m.StatusPlanned, m.StatusInProgress, m.StatusCompleted, m.StatusClosed},
			Forward:   map[m.Status]m.Status{m.StatusFindingsOpen: m.StatusCompleted},
			Anchors:   map[m.Status]m.Status{m.StatusFindingsOpen: m.StatusInProgress},
		},
	}
}
