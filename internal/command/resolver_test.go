package command

import "testing"

func TestResolveVesselProperties(t *testing.T) {
	tests := []struct {
		phrase   string
		value    string
		vessel   string
		property string
		want     string
	}{
		{"superficial femoral occlusion", "8 centimeters", "superficial_femoral", PropOcclusionLength, "8 cm"},
		{"superficial femoral length", "40 millimeters", "superficial_femoral", PropOcclusionLength, "40 mm"},
		{"superficial femoral treatment", "PTA and stent", "superficial_femoral", PropTreatment, "PTA + Stent"},
		{"common iliac tasc", "class C lesion", "common_iliac", PropTASC, "C"},
		{"popliteal calcification", "moderately calcified", "popliteal", PropCalcification, "moderate"},
	}

	p := newTestParser()
	for _, tt := range tests {
		cmd := p.Resolve(tt.phrase, tt.value)
		if cmd.Kind != KindSetVesselField {
			t.Errorf("Resolve(%q) kind = %v, want set_vessel_field", tt.phrase, cmd.Kind)
			continue
		}
		if cmd.Vessel != tt.vessel || cmd.Property != tt.property || cmd.Value != tt.want {
			t.Errorf("Resolve(%q, %q) = {%s %s %s}, want {%s %s %s}",
				tt.phrase, tt.value, cmd.Vessel, cmd.Property, cmd.Value,
				tt.vessel, tt.property, tt.want)
		}
	}
}

func TestResolveCatalogOrder(t *testing.T) {
	p := newTestParser()

	// Both multi-word femoral names resolve as whole phrases; neither
	// shadows the other.
	cmd := p.Resolve("common femoral treatment", "stent")
	if cmd.Vessel != "common_femoral" {
		t.Fatalf("vessel = %q, want common_femoral", cmd.Vessel)
	}

	// "tibial peroneal trunk" contains "peroneal", which sits earlier in
	// the catalog, so the earlier entry wins. Documented behavior: first
	// containment match in catalog order.
	cmd = p.Resolve("tibial peroneal trunk occlusion", "3 cm")
	if cmd.Vessel != "peroneal" {
		t.Fatalf("vessel = %q, want peroneal", cmd.Vessel)
	}
}

func TestResolveVesselWithoutProperty(t *testing.T) {
	p := newTestParser()

	// A vessel name with no recognized property keyword degrades to a
	// generic field instead of failing.
	cmd := p.Resolve("profunda diameter", "6 mm")
	if cmd.Kind != KindSetField {
		t.Fatalf("kind = %v, want set_field", cmd.Kind)
	}
	if cmd.Field != "profunda_diameter" {
		t.Fatalf("field = %q, want profunda_diameter", cmd.Field)
	}
	if cmd.Value != "6 mm" {
		t.Fatalf("value = %q, want verbatim passthrough", cmd.Value)
	}
}

func TestResolveStandardFields(t *testing.T) {
	tests := []struct {
		phrase string
		value  string
		field  string
		want   string
	}{
		{"procedure side", "left side", "procedure_side", "left"},
		{"laterality", "bilateral", "procedure_side", "bilateral"},
		{"access", "right radial artery", "access_site", "radial"},
		{"sheath size", "5 french", "sheath_size", "5fr"},
		{"closure", "mynx device", "closure_method", "mynx"},
		{"mynx deployment", "manual pressure", "closure_method", "manual"},
	}

	p := newTestParser()
	for _, tt := range tests {
		cmd := p.Resolve(tt.phrase, tt.value)
		if cmd.Kind != KindSetField {
			t.Errorf("Resolve(%q) kind = %v, want set_field", tt.phrase, cmd.Kind)
			continue
		}
		if cmd.Field != tt.field || cmd.Value != tt.want {
			t.Errorf("Resolve(%q, %q) = {%s %s}, want {%s %s}",
				tt.phrase, tt.value, cmd.Field, cmd.Value, tt.field, tt.want)
		}
	}
}

func TestResolveGenericFallback(t *testing.T) {
	p := newTestParser()

	cmd := p.Resolve("operating surgeon", "dr smith")
	if cmd.Kind != KindSetField {
		t.Fatalf("kind = %v, want set_field", cmd.Kind)
	}
	if cmd.Field != "operating_surgeon" {
		t.Fatalf("field = %q, want operating_surgeon", cmd.Field)
	}
	if cmd.Value != "dr smith" {
		t.Fatalf("value = %q, want verbatim", cmd.Value)
	}
}

func TestResolveCustomCatalog(t *testing.T) {
	p := NewParser([]string{"renal", "celiac"}, nil)

	cmd := p.Resolve("renal occlusion", "2 cm")
	if cmd.Kind != KindSetVesselField || cmd.Vessel != "renal" {
		t.Fatalf("got %+v", cmd)
	}

	// The default catalog is not consulted once a custom one is supplied.
	cmd = p.Resolve("popliteal occlusion", "2 cm")
	if cmd.Kind != KindSetField {
		t.Fatalf("kind = %v, want set_field fallback", cmd.Kind)
	}
}
