package loadag

// CheckReferentialIntegrity verifies that every id the manifest names
// resolves to a loaded entity. Violations are fatal at load time so no plan
// ever runs against dangling references.
func CheckReferentialIntegrity(cfg *RepoConfig) error {
	for _, id := range cfg.Manifest.Enabled.Modes {
		if _, ok := cfg.Modes[id]; !ok {
			return &MissingIDError{Kind: "modes", ID: id}
		}
	}
	for _, id := range cfg.Manifest.Enabled.Policies {
		if _, ok := cfg.Policies[id]; !ok {
			return &MissingIDError{Kind: "policies", ID: id}
		}
	}
	for _, id := range cfg.Manifest.Enabled.Skills {
		if _, ok := cfg.Skills[id]; !ok {
			return &MissingIDError{Kind: "skills", ID: id}
		}
	}
	for _, id := range cfg.Manifest.Enabled.Adapters {
		if _, ok := cfg.Adapters[id]; !ok {
			return &MissingIDError{Kind: "adapters", ID: id}
		}
	}

	if _, ok := cfg.Modes[cfg.Manifest.Defaults.Mode]; !ok {
		return &MissingIDError{Kind: "defaults.mode", ID: cfg.Manifest.Defaults.Mode}
	}
	if _, ok := cfg.Policies[cfg.Manifest.Defaults.Policy]; !ok {
		return &MissingIDError{Kind: "defaults.policy", ID: cfg.Manifest.Defaults.Policy}
	}
	if profile := cfg.Manifest.Defaults.Profile; profile != "" {
		if _, ok := cfg.Profiles[profile]; !ok {
			return &MissingIDError{Kind: "defaults.profile", ID: profile}
		}
	}
	return nil
}
