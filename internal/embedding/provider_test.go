package embedding

import (
	"testing"

	"changelens/internal/config"
	"changelens/internal/storage"
)

func TestNew(t *testing.T) {
	db, err := storage.Open(t.TempDir(), discard())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	t.Run("local default", func(t *testing.T) {
		cfg := config.DefaultConfig().Embedding
		cfg.Cache.Enabled = false
		p, err := New(cfg, db, discard())
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := p.(*Local); !ok {
			t.Errorf("expected *Local, got %T", p)
		}
	})

	t.Run("empty provider means local", func(t *testing.T) {
		p, err := New(config.EmbeddingConfig{Dimensions: 16}, nil, discard())
		if err != nil {
			t.Fatal(err)
		}
		if p.Model() != "local-xxhash-16" {
			t.Errorf("Model() = %q", p.Model())
		}
	})

	t.Run("cache wraps provider", func(t *testing.T) {
		cfg := config.DefaultConfig().Embedding
		cfg.Cache.Enabled = true
		p, err := New(cfg, db, discard())
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := p.(*Cached); !ok {
			t.Errorf("expected *Cached, got %T", p)
		}
	})

	t.Run("no db means no cache", func(t *testing.T) {
		cfg := config.DefaultConfig().Embedding
		cfg.Cache.Enabled = true
		p, err := New(cfg, nil, discard())
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := p.(*Cached); ok {
			t.Error("cache requires a database")
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		if _, err := New(config.EmbeddingConfig{Provider: "bogus"}, nil, discard()); err == nil {
			t.Error("expected error for unknown provider")
		}
	})

	t.Run("openai key from env", func(t *testing.T) {
		t.Setenv("CHANGELENS_TEST_KEY", "sk-abc")
		cfg := config.EmbeddingConfig{Provider: config.ProviderOpenAI, APIKeyEnv: "CHANGELENS_TEST_KEY"}
		p, err := New(cfg, nil, discard())
		if err != nil {
			t.Fatal(err)
		}
		if p.Model() != "openai:"+DefaultOpenAIModel {
			t.Errorf("Model() = %q", p.Model())
		}
	})
}
