package core

import "clinicadmin/pkg/domain"

// NewDefaultRulesEngine returns an engine with the built-in collection rules:
// unique names and reference integrity.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewUniqueNameRule())
	engine.Register(NewReferenceIntegrityRule())
	return engine
}
