package command

import "strings"

// Resolve maps a spoken field phrase and raw value to a set-field or
// set-vessel-field command. It always succeeds: phrases that match no known
// field become a generic field key (spaces replaced by underscores).
func (p *Parser) Resolve(fieldPhrase, value string) Command {
	for _, vessel := range p.vessels {
		if !strings.Contains(fieldPhrase, vessel) {
			continue
		}
		vesselKey := strings.ReplaceAll(vessel, " ", "_")

		switch {
		case strings.Contains(fieldPhrase, "occlusion") || strings.Contains(fieldPhrase, "length"):
			return Command{
				Kind:     KindSetVesselField,
				Vessel:   vesselKey,
				Property: PropOcclusionLength,
				Value:    NormalizeLength(value),
			}
		case strings.Contains(fieldPhrase, "treatment"):
			return Command{
				Kind:     KindSetVesselField,
				Vessel:   vesselKey,
				Property: PropTreatment,
				Value:    NormalizeTreatment(value),
			}
		case strings.Contains(fieldPhrase, "tasc"):
			return Command{
				Kind:     KindSetVesselField,
				Vessel:   vesselKey,
				Property: PropTASC,
				Value:    NormalizeTASC(value),
			}
		case strings.Contains(fieldPhrase, "calcification"):
			return Command{
				Kind:     KindSetVesselField,
				Vessel:   vesselKey,
				Property: PropCalcification,
				Value:    NormalizeCalcification(value),
			}
		}
		// Vessel named but no known property; treat as a plain field below.
		break
	}

	switch {
	case strings.Contains(fieldPhrase, "side") || strings.Contains(fieldPhrase, "laterality"):
		return Command{Kind: KindSetField, Field: "procedure_side", Value: NormalizeSide(value)}
	case strings.Contains(fieldPhrase, "access"):
		return Command{Kind: KindSetField, Field: "access_site", Value: NormalizeAccessSite(value)}
	case strings.Contains(fieldPhrase, "sheath"):
		return Command{Kind: KindSetField, Field: "sheath_size", Value: NormalizeSheath(value)}
	case strings.Contains(fieldPhrase, "closure") || strings.Contains(fieldPhrase, "mynx"):
		return Command{Kind: KindSetField, Field: "closure_method", Value: NormalizeClosure(value)}
	}

	return Command{
		Kind:  KindSetField,
		Field: strings.ReplaceAll(fieldPhrase, " ", "_"),
		Value: value,
	}
}
