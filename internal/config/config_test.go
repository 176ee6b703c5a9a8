package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()

	if cfg.Ingest.Budget != 4*time.Minute || cfg.Backfill.Budget != 6*time.Minute {
		t.Fatalf("unexpected stage budgets: ingest=%s backfill=%s", cfg.Ingest.Budget, cfg.Backfill.Budget)
	}
	// Publish carries no budget; the gate always runs to completion.
	if cfg.Publish != (PublishConfig{}) {
		t.Fatalf("publish defaults must be zero: %+v", cfg.Publish)
	}
	if cfg.Trigger.MaxChainDepth != 3 {
		t.Fatalf("unexpected chain depth: %d", cfg.Trigger.MaxChainDepth)
	}
	if len(cfg.Feeds) == 0 {
		t.Fatal("default feed list is empty")
	}
}

func TestValidateFailsFastOnMissingSecrets(t *testing.T) {
	t.Parallel()

	if err := defaultConfig().Validate(); err == nil {
		t.Fatal("defaults carry no secret, api key or dsn; Validate must fail")
	}

	cfg := defaultConfig()
	cfg.Trigger.Secret = "s3cret"
	cfg.OpenAI.APIKey = "key"
	cfg.Database.DSN = "postgres://localhost/tenniswire"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("complete config rejected: %v", err)
	}

	cfg.Feeds = append(cfg.Feeds, FeedConfig{Name: "bad", Kind: "carrier-pigeon"})
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown feed kind must fail validation")
	}
}

func TestMergeConfigKeepsBaseForZeroOverrides(t *testing.T) {
	t.Parallel()

	base := defaultConfig()
	merged := mergeConfig(base, Config{
		Publish: PublishConfig{DryRun: true},
		Ingest:  IngestConfig{Refresh: true},
	})

	if !merged.Publish.DryRun || !merged.Ingest.Refresh {
		t.Fatalf("boolean overrides lost: %+v %+v", merged.Publish, merged.Ingest)
	}
	if merged.Ingest.Budget != base.Ingest.Budget || merged.Backfill.Concurrency != base.Backfill.Concurrency {
		t.Fatal("zero-valued override fields must not clobber base settings")
	}
}

func TestVariantCountPolicy(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Rewrite.VariantsBySource = map[string]int{"atptour": 5}

	if n := cfg.VariantCount("atptour"); n != 5 {
		t.Fatalf("per-source override ignored: %d", n)
	}
	// wtatennis is configured with 2 variants in the default feed list.
	if n := cfg.VariantCount("wtatennis"); n != 2 {
		t.Fatalf("feed-level variant count ignored: %d", n)
	}
	if n := cfg.VariantCount("unknown-source"); n != cfg.Rewrite.DefaultVariants {
		t.Fatalf("default variant count ignored: %d", n)
	}
}
