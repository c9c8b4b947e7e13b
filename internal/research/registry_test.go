package research

import "testing"

func TestLoadRegistry(t *testing.T) {
	reg, err := LoadRegistry("config/profiles.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reg.Profiles) == 0 {
		t.Fatal("expected at least one embedded profile")
	}

	profile, err := reg.Get("demo_seo_tools")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.SiteDomain != "example-seo.dev" {
		t.Errorf("unexpected site domain %q", profile.SiteDomain)
	}
	if len(profile.Competitor) != 3 {
		t.Errorf("expected 3 competitors, got %v", profile.Competitor)
	}
	// Omitted fields pick up defaults.
	if profile.Language != "en" || profile.Country != "US" {
		t.Errorf("expected default market en/US, got %s/%s", profile.Language, profile.Country)
	}
	if profile.KeywordLimit != 500 {
		t.Errorf("expected default keyword limit 500, got %d", profile.KeywordLimit)
	}
	if profile.MinGapVolume == nil || *profile.MinGapVolume != 100 {
		t.Errorf("expected configured min gap volume 100, got %v", profile.MinGapVolume)
	}
	if profile.Similarity != "llm" {
		t.Errorf("expected configured similarity kept, got %q", profile.Similarity)
	}
}

func TestProfileMinGapVolumeDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   *int
		want int
	}{
		{"absent field gets the default", nil, 50},
		{"explicit zero disables the filter", iptr(0), 0},
		{"negative value clamps to zero", iptr(-10), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ProfileConfig{MinGapVolume: tt.in}
			applyProfileDefaults(&p)
			if p.MinGapVolume == nil || *p.MinGapVolume != tt.want {
				t.Errorf("expected min gap volume %d, got %v", tt.want, p.MinGapVolume)
			}
		})
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	reg := &Registry{}
	if _, err := reg.Get("nope"); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}
