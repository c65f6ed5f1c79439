package service

import (
	"fmt"

	"github.com/kitbuilder587/imgsearch/internal/domain"
	"github.com/kitbuilder587/imgsearch/internal/provider"
)

const (
	ModeForced    = "forced"
	ModePriority  = "priority"
	ModeAggregate = "aggregate"
)

type SelectorConfig struct {
	Mode           string
	ForcedProvider string
	// FallbackToPriority: что делать, если forced-провайдер не зарегистрирован -
	// откатиться на priority-список или упасть на старте
	FallbackToPriority bool
	Priority           []string
}

// EngineSelector решает, какой провайдер (или режим аггрегации) обслуживает
// запрос. Выбор вычисляется один раз при создании; ProviderHint в запросе
// перекрывает его для одного вызова.
type EngineSelector struct {
	mode     string
	selected provider.Provider
	byName   map[string]provider.Provider
	ordered  []provider.Provider
}

func NewEngineSelector(cfg SelectorConfig, providers []provider.Provider) (*EngineSelector, error) {
	if len(providers) == 0 {
		return nil, domain.ErrNoProviders
	}

	byName := make(map[string]provider.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	s := &EngineSelector{
		mode:    cfg.Mode,
		byName:  byName,
		ordered: providers,
	}

	switch cfg.Mode {
	case ModeAggregate:
		return s, nil

	case ModeForced:
		if p, ok := byName[cfg.ForcedProvider]; ok {
			s.selected = p
			return s, nil
		}
		if !cfg.FallbackToPriority {
			return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, cfg.ForcedProvider)
		}
		fallthrough

	case ModePriority:
		s.mode = ModePriority
		for _, name := range cfg.Priority {
			if p, ok := byName[name]; ok {
				s.selected = p
				return s, nil
			}
		}
		return nil, fmt.Errorf("%w: none of priority list registered", domain.ErrProviderNotFound)

	default:
		return nil, fmt.Errorf("unknown selector mode %q", cfg.Mode)
	}
}

func (s *EngineSelector) Mode() string { return s.mode }

// Providers возвращает провайдеров в сконфигурированном порядке.
// Этот порядок фиксирует tie-break дедупликации при аггрегации.
func (s *EngineSelector) Providers() []provider.Provider { return s.ordered }

func (s *EngineSelector) Provider(name string) (provider.Provider, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// Select возвращает (провайдер, nil) для одиночного режима или (nil, nil)
// для режима аггрегации. Hint обходит оба режима на один вызов.
func (s *EngineSelector) Select(hint string) (provider.Provider, error) {
	if hint != "" {
		p, ok := s.byName[hint]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, hint)
		}
		return p, nil
	}

	if s.mode == ModeAggregate {
		return nil, nil
	}
	return s.selected, nil
}
