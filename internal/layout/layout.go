package layout

import (
	"context"
	"strconv"

	"evacconsole/internal/repository"
)

// Prefs persists console layout preferences.
type Prefs struct {
	repo repository.PrefsRepo
}

func New(repo repository.PrefsRepo) *Prefs {
	return &Prefs{repo: repo}
}

// SidebarCollapsed returns the stored flag; a missing or unparsable value reads as false.
func (p *Prefs) SidebarCollapsed(ctx context.Context) (bool, error) {
	v, ok, err := p.repo.Get(ctx, repository.KeySidebarCollapsed)
	if err != nil || !ok {
		return false, err
	}
	collapsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, nil
	}
	return collapsed, nil
}

func (p *Prefs) SetSidebarCollapsed(ctx context.Context, collapsed bool) error {
	return p.repo.Set(ctx, repository.KeySidebarCollapsed, strconv.FormatBool(collapsed))
}
