package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_NormalizeAndDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	dir := t.TempDir()
	cfg := []byte("STORE_BACKEND: \"MongoDB\"\nBASE_DOMAIN: \"https://weibo.cn/\"\nDELAY_MIN_MS: 2000\nDELAY_MAX_MS: 500\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), cfg, 0644); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(dir); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if AppConfig.StoreBackend != "mongodb" {
		t.Fatalf("StoreBackend = %q, want %q", AppConfig.StoreBackend, "mongodb")
	}
	if AppConfig.BaseDomain != "https://weibo.cn" {
		t.Fatalf("BaseDomain = %q, want trailing slash stripped", AppConfig.BaseDomain)
	}
	if AppConfig.DelayMaxMs != AppConfig.DelayMinMs {
		t.Fatalf("DelayMaxMs = %d, want clamped to DelayMinMs %d", AppConfig.DelayMaxMs, AppConfig.DelayMinMs)
	}
	if AppConfig.RepostMaxPages != 300 {
		t.Fatalf("RepostMaxPages default = %d, want 300", AppConfig.RepostMaxPages)
	}
	if AppConfig.EmptyStreakLimit != 3 {
		t.Fatalf("EmptyStreakLimit default = %d, want 3", AppConfig.EmptyStreakLimit)
	}
}

func TestGetKeywords(t *testing.T) {
	old := AppConfig.Keywords
	defer func() { AppConfig.Keywords = old }()

	AppConfig.Keywords = " 地震 , ,台风 "
	got := GetKeywords()
	if len(got) != 2 || got[0] != "地震" || got[1] != "台风" {
		t.Fatalf("GetKeywords() = %v", got)
	}
}
