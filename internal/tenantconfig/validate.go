package tenantconfig

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	errs "github.com/p-blackswan/safety-engine/internal/errors"
	"github.com/p-blackswan/safety-engine/internal/escalation"
	"github.com/p-blackswan/safety-engine/internal/models"
)

//go:embed schema.json
var overrideSchemaJSON string

const overrideSchemaURL = "https://safety-engine.schemas.local/tenant-module-config.schema.json"

var overrideSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(overrideSchemaURL, bytes.NewReader([]byte(overrideSchemaJSON))); err != nil {
		panic(fmt.Sprintf("tenantconfig: schema load failed: %v", err))
	}
	s, err := c.Compile(overrideSchemaURL)
	if err != nil {
		panic(fmt.Sprintf("tenantconfig: schema compile failed: %v", err))
	}
	return s
}

// ParseOverride validates raw against the override schema, decodes it and runs
// the semantic checks. Any failure is a *errors.ConfigError matching
// errors.ErrMalformedConfig.
func ParseOverride(module models.ModuleKey, raw []byte) (TenantModuleConfig, error) {
	if !module.Valid() {
		return TenantModuleConfig{}, fmt.Errorf("parse override: %w: %q", errs.ErrUnknownModule, module)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return TenantModuleConfig{}, &errs.ConfigError{Module: string(module), Msg: "invalid JSON", Err: err}
	}
	if err := overrideSchema.Validate(doc); err != nil {
		return TenantModuleConfig{}, &errs.ConfigError{Module: string(module), Msg: "schema validation failed", Err: err}
	}

	var o TenantModuleConfig
	if err := json.Unmarshal(raw, &o); err != nil {
		return TenantModuleConfig{}, &errs.ConfigError{Module: string(module), Msg: "decode failed", Err: err}
	}
	if err := Validate(module, o); err != nil {
		return TenantModuleConfig{}, err
	}
	return o, nil
}

// Validate runs the checks a schema cannot express. It also guards overrides
// built in code rather than parsed from JSON.
func Validate(module models.ModuleKey, o TenantModuleConfig) error {
	m := string(module)
	if o.ApprovalFlow != nil {
		if len(o.ApprovalFlow.Steps) == 0 {
			return errs.NewConfigError(m, "approvalFlow", "must list at least one step")
		}
		if err := validateSteps(m, "approvalFlow", *o.ApprovalFlow); err != nil {
			return err
		}
	}
	if o.HighRiskApprovalFlow != nil {
		if err := validateSteps(m, "highRiskApprovalFlow", *o.HighRiskApprovalFlow); err != nil {
			return err
		}
	}
	if o.ClosureFlow != nil {
		if len(o.ClosureFlow.Steps) > 0 {
			return errs.NewConfigError(m, "closureFlow", "must be an anyOf set")
		}
		if len(o.ClosureFlow.AnyOf) == 0 {
			return errs.NewConfigError(m, "closureFlow.anyOf", "must not be empty")
		}
		if err := validateRoles(m, "closureFlow.anyOf", o.ClosureFlow.AnyOf); err != nil {
			return err
		}
	}
	for i, s := range o.StopWorkRoles {
		if !s.Role.Valid() {
			return errs.NewConfigError(m, fmt.Sprintf("stopWorkRoles[%d]", i), "invalid role %q", s.Role)
		}
	}
	if o.SeverityEscalation != nil {
		if err := escalation.Validate(o.SeverityEscalation); err != nil {
			return &errs.ConfigError{Module: m, Field: "severityEscalation", Msg: err.Error()}
		}
	}
	for name := range o.Checklists {
		if name == "" {
			return errs.NewConfigError(m, "checklists", "checklist name must not be empty")
		}
	}
	for action, roles := range o.Permissions {
		if !knownAction(action) {
			return errs.NewConfigError(m, "permissions", "unknown action %q", action)
		}
		if err := validateRoles(m, "permissions."+string(action), roles); err != nil {
			return err
		}
	}
	return nil
}

func validateSteps(module, field string, f models.ApprovalFlow) error {
	if len(f.AnyOf) > 0 {
		return errs.NewConfigError(module, field, "must be a list of steps")
	}
	prev := 0
	for i, s := range f.Steps {
		where := fmt.Sprintf("%s[%d]", field, i)
		if s.Index <= prev {
			return errs.NewConfigError(module, where, "step %d must be positive and greater than %d", s.Index, prev)
		}
		prev = s.Index
		if !s.Role.Valid() {
			return errs.NewConfigError(module, where, "invalid role %q", s.Role)
		}
		if s.TimeLimitHours < 0 {
			return errs.NewConfigError(module, where, "timeLimitHours must be positive")
		}
	}
	return nil
}

func validateRoles(module, field string, roles []models.Role) error {
	for _, r := range roles {
		if !r.Valid() {
			return errs.NewConfigError(module, field, "invalid role %q", r)
		}
	}
	return nil
}

func knownAction(a models.Action) bool {
	for _, k := range models.KnownActions {
		if k == a {
			return true
		}
	}
	return false
}
