package core

import (
	"fmt"
	"yardops/pkg/domain"
)

// NewDefaultRulesEngine returns an engine with the yard's commit-time rules.
// They re-check inside the transaction what the engine already validated
// against the cache, so a stale cache cannot commit an inconsistent batch.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewCollectionQuantityRule())
	engine.Register(NewCollectionCapacityRule())
	engine.Register(CollectionLifecycleRule())
	engine.Register(NewContainerHistoryRule())
	return engine
}

func blockf(rule string, kind domain.EntityKind, id, format string, args ...any) domain.Violation {
	return domain.Violation{
		Rule:     rule,
		Severity: domain.SeverityBlock,
		Message:  fmt.Sprintf(format, args...),
		Kind:     kind,
		EntityID: id,
	}
}
