package config

// ApplyDefaults applies default values to a ProjectConfig.
func (c *ProjectConfig) ApplyDefaults() {
	if c == nil {
		return
	}
	if c.Name == "" {
		c.Name = "deebase"
	}
}

// ApplyDefaults applies default values to a TargetConfig based on the
// target type.
func (t *TargetConfig) ApplyDefaults() {
	if t == nil {
		return
	}
	switch t.Type {
	case "postgres":
		if t.Port == 0 {
			t.Port = 5432
		}
		if t.Host == "" {
			t.Host = "localhost"
		}
	case "sqlite", "duckdb":
		if t.Path == "" {
			t.Path = ":memory:"
		}
	}
}
