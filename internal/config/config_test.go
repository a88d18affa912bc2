package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8741 {
		t.Fatalf("Port = %d, want 8741", cfg.Port)
	}
	if cfg.EmbedProvider != "ollama" {
		t.Fatalf("EmbedProvider = %q, want ollama", cfg.EmbedProvider)
	}
	if cfg.VectorDim != 768 {
		t.Fatalf("VectorDim = %d, want 768", cfg.VectorDim)
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("RECLAW_PORT", "9000")
	t.Setenv("RECLAW_EMBED_PROVIDER", "none")
	t.Setenv("RECLAW_MARKDOWN_PATHS", "docs/, notes/ , ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9000 {
		t.Fatalf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.EmbedProvider != "none" {
		t.Fatalf("EmbedProvider = %q, want none", cfg.EmbedProvider)
	}
	if len(cfg.MarkdownPaths) != 2 || cfg.MarkdownPaths[0] != "docs/" || cfg.MarkdownPaths[1] != "notes/" {
		t.Fatalf("MarkdownPaths = %v", cfg.MarkdownPaths)
	}
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	t.Setenv("RECLAW_PORT", "99999")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an out-of-range port")
	}
}

func TestLoadRejectsInvalidEmbedProvider(t *testing.T) {
	t.Setenv("RECLAW_EMBED_PROVIDER", "bogus")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an unknown embed provider")
	}
}

func TestLoadRejectsEmptyDBPath(t *testing.T) {
	t.Setenv("RECLAW_DB_PATH", "")
	// empty env var falls back to the default, so force the zero value
	// through validate directly instead.
	cfg := &Config{DBPath: "", Port: 8741, VectorDim: 768, EmbedProvider: "ollama"}
	if err := cfg.validate(); err == nil {
		t.Fatal("expected an error for an empty DBPath")
	}
}
