package api

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/safety-engine/internal/audit"
	"github.com/p-blackswan/safety-engine/internal/engine"
	errs "github.com/p-blackswan/safety-engine/internal/errors"
	"github.com/p-blackswan/safety-engine/internal/gate"
	"github.com/p-blackswan/safety-engine/internal/models"
	"github.com/p-blackswan/safety-engine/internal/sla"
	"github.com/p-blackswan/safety-engine/internal/store"
	"github.com/p-blackswan/safety-engine/internal/tenantconfig"
)

const defaultAuditLimit = 50

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	engine    *engine.Engine
	audit     *audit.Log
	revisions RevisionReader
	logger    zerolog.Logger
}

// RevisionReader looks up the stored copy of a tenant override.
type RevisionReader interface {
	GetOverride(ctx context.Context, tenantID string, module models.ModuleKey) (*store.Override, error)
}

// NewHandlers creates a new Handlers instance. auditLog and revisions may be
// nil.
func NewHandlers(eng *engine.Engine, auditLog *audit.Log, revisions RevisionReader, logger zerolog.Logger) *Handlers {
	return &Handlers{
		engine:    eng,
		audit:     auditLog,
		revisions: revisions,
		logger:    logger.With().Str("component", "handlers").Logger(),
	}
}

func (h *Handlers) view(c *fiber.Ctx) *engine.View {
	return h.engine.At(tenantOf(c))
}

func parseModule(raw string) (models.ModuleKey, error) {
	if raw == "" {
		return "", badRequest("missing_module", "module is required")
	}
	m, err := models.ParseModule(raw)
	if err != nil {
		return "", notFound("unknown_module", err.Error())
	}
	return m, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return badRequest("invalid_body", "Invalid request body: "+err.Error())
	}
	return nil
}

// CheckTransition handles POST /api/v1/transitions/check.
func (h *Handlers) CheckTransition(c *fiber.Ctx) error {
	var req TransitionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	module, err := parseModule(req.Module)
	if err != nil {
		return err
	}
	if req.From == "" || req.To == "" {
		return badRequest("missing_status", "from and to are required")
	}

	v := h.view(c)
	resp := TransitionResponse{
		Legal:   v.IsLegalTransition(module, req.From, req.To),
		Options: v.NextStatuses(module, req.From),
		Epoch:   v.Epoch(),
	}
	if resp.Legal {
		resp.Next, _ = v.DefaultNext(module, req.To)
		resp.Progress, _ = v.Progress(module, req.To)
	}
	return c.JSON(resp)
}

// CheckAction handles POST /api/v1/actions/check.
func (h *Handlers) CheckAction(c *fiber.Ctx) error {
	var req ActionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	module, err := parseModule(req.Module)
	if err != nil {
		return err
	}
	if req.Action == "" {
		return badRequest("missing_action", "action is required")
	}
	if (req.From == "") != (req.To == "") {
		return badRequest("missing_status", "from and to must be given together")
	}

	v := h.view(c)
	role := roleOf(c)
	var check engine.Check
	if req.From != "" {
		check = v.CheckTransition(module, role, req.Action, req.From, req.To)
	} else {
		check = v.CheckAction(module, req.Action, role)
	}
	return c.JSON(ActionResponse{Check: check, Role: role, Epoch: v.Epoch()})
}

// ListModules handles GET /api/v1/modules.
func (h *Handlers) ListModules(c *fiber.Ctx) error {
	snap := h.view(c).Snapshot()
	overridden := snap.OverriddenModules()
	out := make([]ModuleSummary, 0, len(models.Modules))
	for _, m := range models.Modules {
		out = append(out, ModuleSummary{
			Module:     m,
			Enabled:    snap.ModuleEnabled(m),
			Overridden: containsModule(overridden, m),
		})
	}
	return c.JSON(fiber.Map{"modules": out, "epoch": snap.Epoch()})
}

// AllowedActions handles GET /api/v1/modules/:module/actions.
func (h *Handlers) AllowedActions(c *fiber.Ctx) error {
	module, err := parseModule(c.Params("module"))
	if err != nil {
		return err
	}
	v := h.view(c)
	role := roleOf(c)
	actions := v.AllowedActions(module, role)
	if actions == nil {
		actions = []models.Action{}
	}
	return c.JSON(ActionsResponse{
		Module:  module,
		Role:    role,
		Enabled: v.ModuleEnabled(module),
		Actions: actions,
		Epoch:   v.Epoch(),
	})
}

// ApprovalFlow handles GET /api/v1/modules/:module/approval?severity=.
func (h *Handlers) ApprovalFlow(c *fiber.Ctx) error {
	module, err := parseModule(c.Params("module"))
	if err != nil {
		return err
	}
	severity := models.SeverityLow
	if raw := c.Query("severity"); raw != "" {
		if severity, err = models.ParseSeverity(raw); err != nil {
			return badRequest("invalid_severity", err.Error())
		}
	}
	v := h.view(c)
	cfg, _ := v.Config(module)
	return c.JSON(ApprovalResponse{
		Module:        module,
		Severity:      severity,
		ApprovalFlow:  v.ApprovalFlowFor(module, severity),
		ClosureFlow:   cfg.ClosureFlow,
		StopWorkRoles: v.StopWorkRoles(module),
		Epoch:         v.Epoch(),
	})
}

// Escalation handles POST /api/v1/escalation.
func (h *Handlers) Escalation(c *fiber.Ctx) error {
	var req EscalationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	module, err := parseModule(req.Module)
	if err != nil {
		return err
	}
	severity, err := models.ParseSeverity(req.Severity)
	if err != nil {
		return badRequest("invalid_severity", err.Error())
	}

	v := h.view(c)
	primary, eligible := v.Recommend(module, severity)
	return c.JSON(EscalationResponse{Primary: primary, Eligible: eligible, Epoch: v.Epoch()})
}

// SLA handles POST /api/v1/sla.
func (h *Handlers) SLA(c *fiber.Ctx) error {
	var req SLARequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.AssignedAt.IsZero() {
		return badRequest("missing_assigned_at", "assignedAt is required")
	}
	if req.TimeLimitHours < 0 {
		return badRequest("invalid_time_limit", "timeLimitHours must not be negative")
	}

	step := sla.AssignedStep{AssignedAt: req.AssignedAt, TimeLimitHours: req.TimeLimitHours}
	if req.Now != nil {
		return c.JSON(SLAResponse{Status: sla.Check(step, *req.Now)})
	}
	return c.JSON(SLAResponse{Status: h.view(c).SLA(step)})
}

// Access handles POST /api/v1/access. The actor is the caller; the tenant's
// module switches come from its current snapshot.
func (h *Handlers) Access(c *fiber.Ctx) error {
	var req AccessRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Path == "" {
		return badRequest("missing_path", "path is required")
	}

	resource := gate.Resource{Path: req.Path, AllowedRoles: req.Roles}
	if req.Module != "" {
		module, err := parseModule(req.Module)
		if err != nil {
			return err
		}
		resource.RequiredModule = module
	}

	actor := gate.Actor{Auth: gate.AuthAuthenticated, Role: roleOf(c)}
	if req.Authenticated != nil && !*req.Authenticated {
		actor.Auth = gate.AuthAnonymous
	}
	tenant := gate.TenantContext{
		Loaded:             req.TenantLoaded == nil || *req.TenantLoaded,
		SubscriptionStatus: req.SubscriptionStatus,
	}

	return c.JSON(h.view(c).Evaluate(actor, tenant, resource))
}

// GetConfig handles GET /api/v1/config/:module.
func (h *Handlers) GetConfig(c *fiber.Ctx) error {
	module, err := parseModule(c.Params("module"))
	if err != nil {
		return err
	}
	v := h.view(c)
	cfg, _ := v.Config(module)
	resp := ConfigResponse{TenantID: v.TenantID(), Module: module, Epoch: v.Epoch(), Config: cfg}
	if raw, ok := v.Snapshot().Override(module); ok {
		resp.Override = raw
		resp.Revision = h.revision(c, module)
	}
	return c.JSON(resp)
}

// revision returns the stored revision of the caller's override of module,
// 0 when there is no revision store or the lookup fails.
func (h *Handlers) revision(c *fiber.Ctx, module models.ModuleKey) int64 {
	if h.revisions == nil {
		return 0
	}
	o, err := h.revisions.GetOverride(c.UserContext(), tenantOf(c), module)
	if err != nil {
		h.logger.Warn().Err(err).
			Str("tenant_id", tenantOf(c)).
			Str("module", string(module)).
			Msg("failed to read override revision")
		return 0
	}
	if o == nil {
		return 0
	}
	return o.Revision
}

// PutConfig handles PUT /api/v1/config/:module. The body is a JSON override,
// or YAML when sent as application/yaml. A rejected document resets the module
// to its default and answers 422.
func (h *Handlers) PutConfig(c *fiber.Ctx) error {
	module, err := parseModule(c.Params("module"))
	if err != nil {
		return err
	}

	raw := c.Body()
	if isYAML(c.Get(fiber.HeaderContentType)) {
		if raw, err = tenantconfig.YAMLToJSON(raw); err != nil {
			return badRequest("invalid_yaml", err.Error())
		}
	}

	tenant := tenantOf(c)
	epoch, err := h.engine.Store().PublishRaw(c.UserContext(), tenant, module, raw)
	h.record(c, audit.ActionPublish, module, epoch, err)
	if err != nil {
		h.logger.Warn().Err(err).
			Str("tenant_id", tenant).
			Str("module", string(module)).
			Msg("override rejected")
		return problemFromError(err)
	}
	return h.GetConfig(c)
}

// DeleteConfig handles DELETE /api/v1/config/:module.
func (h *Handlers) DeleteConfig(c *fiber.Ctx) error {
	module, err := parseModule(c.Params("module"))
	if err != nil {
		return err
	}
	epoch, err := h.engine.Store().Reset(c.UserContext(), tenantOf(c), module)
	h.record(c, audit.ActionReset, module, epoch, err)
	if err != nil {
		return problemFromError(err)
	}
	return h.GetConfig(c)
}

// ListAudit handles GET /api/v1/audit?limit=. Entries come from durable
// storage when the audit log has one.
func (h *Handlers) ListAudit(c *fiber.Ctx) error {
	if h.audit == nil {
		return c.JSON(fiber.Map{"entries": []audit.Entry{}})
	}
	limit := c.QueryInt("limit", defaultAuditLimit)
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	entries := h.audit.History(c.UserContext(), tenantOf(c), limit)
	if entries == nil {
		entries = []audit.Entry{}
	}
	return c.JSON(fiber.Map{"entries": entries})
}

func (h *Handlers) record(c *fiber.Ctx, action string, module models.ModuleKey, epoch uint64, err error) {
	if h.audit == nil {
		return
	}
	e := audit.Entry{
		TenantID: tenantOf(c),
		Module:   string(module),
		Actor:    subjectOf(c),
		Role:     string(roleOf(c)),
		Action:   action,
		Result:   audit.ResultOK,
		Epoch:    epoch,
	}
	if err != nil {
		e.Result = audit.ResultError
		if errs.IsMalformed(err) {
			e.Result = audit.ResultRejected
		}
		e.Details = err.Error()
	}
	h.audit.Record(c.UserContext(), e)
}

func isYAML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "yaml")
}

func containsModule(list []models.ModuleKey, m models.ModuleKey) bool {
	for _, x := range list {
		if x == m {
			return true
		}
	}
	return false
}
