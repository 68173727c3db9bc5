package authorize

import (
	"context"
	"log/slog"
	"sync/atomic"

	psqlwatcher "github.com/IguteChung/casbin-psql-watcher"
	casbin "github.com/casbin/casbin/v2"
	entadapter "github.com/casbin/ent-adapter"
)

// policyLoadHealthy tracks whether the last policy reload succeeded.
var policyLoadHealthy atomic.Bool

func init() {
	policyLoadHealthy.Store(true)
}

// IsPolicyHealthy returns false after a failed policy reload.
func IsPolicyHealthy() bool {
	return policyLoadHealthy.Load()
}

// CleanupFunc is a function that cleans up resources.
type CleanupFunc func(ctx context.Context)

// NewEnforcer creates a Casbin enforcer whose policies live in PostgreSQL.
// With sync enabled, a LISTEN/NOTIFY watcher reloads policies on every replica
// when one of them changes a rule.
func NewEnforcer(modelPath, dsn string, sync bool) (*casbin.SyncedEnforcer, CleanupFunc, error) {
	a, err := entadapter.NewAdapter("postgres", dsn)
	if err != nil {
		return nil, nil, err
	}

	e, err := casbin.NewSyncedEnforcer(modelPath, a)
	if err != nil {
		return nil, nil, err
	}

	var closeWatcher func()
	if sync {
		w, err := psqlwatcher.NewWatcherWithConnString(context.Background(), dsn, psqlwatcher.Option{
			Channel: "clinica_policy_update",
		})
		if err != nil {
			return nil, nil, err
		}

		err = w.SetUpdateCallback(func(msg string) {
			slog.Debug("casbin policy update received", "message", msg)
			if err := e.LoadPolicy(); err != nil {
				slog.Error("failed to reload policy after watcher notification", "error", err)
				policyLoadHealthy.Store(false)
			} else {
				policyLoadHealthy.Store(true)
			}
		})
		if err != nil {
			return nil, nil, err
		}

		if err := e.SetWatcher(w); err != nil {
			return nil, nil, err
		}
		closeWatcher = func() { w.Close() }
	}

	e.EnableAutoSave(true)
	e.EnableEnforce(true)

	cleanup := func(ctx context.Context) {
		if closeWatcher != nil {
			slog.Info("closing casbin policy watcher")
			closeWatcher()
		}
		slog.Info("casbin enforcer cleanup completed")
	}

	return e, cleanup, nil
}
