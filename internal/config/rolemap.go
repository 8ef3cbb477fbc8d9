package config

import (
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RoleMap maps storefront plan codes to Discord role ids. Orders without a
// plan code, or with one that is not mapped, fall back to the premium role.
type RoleMap struct {
	Plans []PlanRole `mapstructure:"plans"`
}

type PlanRole struct {
	PlanCode string `mapstructure:"planCode"`
	RoleID   string `mapstructure:"roleId"`
}

type RoleMapHolder struct {
	current atomic.Value // holds RoleMap
}

// NewRoleMapHolder loads rolemap.yml and keeps it hot-reloaded: role
// assignments for new plans can be rolled out without a restart.
func NewRoleMapHolder() (*RoleMapHolder, error) {
	v := viper.New()

	v.SetConfigName("rolemap")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/rolegate/config") // Volume-mounted config
	v.AddConfigPath("/etc/rolegate")            // System config
	v.AddConfigPath(".")                        // Current directory (dev mode)

	v.SetEnvPrefix("ROLEGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// no role map file: every plan resolves to the premium role
		fileFound = false
	}

	var cfg RoleMap
	if err := v.UnmarshalKey("rolemap", &cfg); err != nil {
		return nil, err
	}

	holder := &RoleMapHolder{}
	holder.current.Store(normalizeRoleMap(cfg))

	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RoleMap
		if err := v.UnmarshalKey("rolemap", &updated); err != nil {
			log.Printf("[rolemap] reload failed: %v", err)
			return
		}
		holder.current.Store(normalizeRoleMap(updated))
		log.Printf("[rolemap] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticRoleMap builds a holder with a fixed mapping, bypassing the file
// watcher. Used by tests and embedded setups.
func NewStaticRoleMap(plans ...PlanRole) *RoleMapHolder {
	holder := &RoleMapHolder{}
	holder.current.Store(normalizeRoleMap(RoleMap{Plans: plans}))
	return holder
}

func (h *RoleMapHolder) Get() RoleMap {
	return h.current.Load().(RoleMap)
}

// ResolveRole returns the role id for a plan code, or fallback when the plan
// is unknown or empty.
func (h *RoleMapHolder) ResolveRole(planCode, fallback string) string {
	planCode = strings.ToLower(strings.TrimSpace(planCode))
	if planCode == "" {
		return fallback
	}
	for _, plan := range h.Get().Plans {
		if plan.PlanCode == planCode && plan.RoleID != "" {
			return plan.RoleID
		}
	}
	return fallback
}

func normalizeRoleMap(cfg RoleMap) RoleMap {
	out := RoleMap{Plans: make([]PlanRole, 0, len(cfg.Plans))}
	for _, plan := range cfg.Plans {
		code := strings.ToLower(strings.TrimSpace(plan.PlanCode))
		roleID := strings.TrimSpace(plan.RoleID)
		if code == "" || roleID == "" {
			continue
		}
		out.Plans = append(out.Plans, PlanRole{PlanCode: code, RoleID: roleID})
	}
	return out
}
