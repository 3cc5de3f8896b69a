package policy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"scopedrest/internal/models"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// RolePrefix prefixes role subjects in the policy.
const RolePrefix = "role:"

type EnforcerConfig struct {
	// PolicyPath replaces the embedded policy when it names an existing file.
	PolicyPath     string
	ReloadInterval time.Duration
}

// Enforcer answers whether a key may perform an action on a resource class.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
	reload   bool
}

func NewEnforcer(cfg EnforcerConfig) (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	fromFile := cfg.PolicyPath != "" && fileExists(cfg.PolicyPath)
	if fromFile {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	e := &Enforcer{enforcer: enforcer}
	if fromFile && cfg.ReloadInterval > 0 {
		enforcer.StartAutoLoadPolicy(cfg.ReloadInterval)
		e.reload = true
	}
	return e, nil
}

// NewEnforcerFromPolicy builds an enforcer from policy lines in CSV form.
func NewEnforcerFromPolicy(policy string) (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := loadPolicy(enforcer, policy); err != nil {
		return nil, err
	}
	return &Enforcer{enforcer: enforcer}, nil
}

func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) >= 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) >= 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		}
	}
	return nil
}

// Can checks the key's own subject, then each of its roles.
func (e *Enforcer) Can(key *models.APIKey, action, resource string) (bool, error) {
	subjects := append([]string{key.Subject()}, roleSubjects(key)...)
	for _, sub := range subjects {
		allowed, err := e.enforcer.Enforce(sub, resource, action)
		if err != nil {
			return false, fmt.Errorf("enforcement failed: %w", err)
		}
		if allowed {
			return true, nil
		}
	}
	return false, nil
}

func roleSubjects(key *models.APIKey) []string {
	roles := key.RoleList()
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = RolePrefix + r
	}
	return out
}

// Stop ends policy auto reload.
func (e *Enforcer) Stop() {
	if e.reload {
		e.enforcer.StopAutoLoadPolicy()
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
