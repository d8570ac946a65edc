package tenantconfig

// Merge overlays o on def. Each field present in o replaces the default value
// entirely; lists and maps are never merged element by element. Merging an
// empty override returns def unchanged, and merging the same override twice
// gives the same result as merging it once. The result shares no memory with
// def or o.
func Merge(def EffectiveConfig, o TenantModuleConfig) EffectiveConfig {
	out := def.Clone()
	if o.Enabled != nil {
		out.Enabled = *o.Enabled
	}
	if o.ApprovalFlow != nil {
		out.ApprovalFlow = o.ApprovalFlow.Clone()
	}
	if o.HighRiskApprovalFlow != nil {
		out.HighRiskApprovalFlow = o.HighRiskApprovalFlow.Clone()
	}
	if o.ClosureFlow != nil {
		out.ClosureFlow = o.ClosureFlow.Clone()
	}
	if o.StopWorkRoles != nil {
		out.StopWorkRoles = cloneStopWork(o.StopWorkRoles)
	}
	if o.SeverityEscalation != nil {
		out.SeverityEscalation = o.SeverityEscalation.Clone()
	}
	if o.Checklists != nil {
		out.Checklists = cloneChecklists(o.Checklists)
	}
	if o.Permissions != nil {
		out.Permissions = clonePermissions(o.Permissions)
	}
	return out
}
