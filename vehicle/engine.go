package vehicle

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Engine types offered by the estimator form, as they appear in listings.
const (
	EngineDiesel       = "Diésel"
	EngineGasoline     = "Gasolina"
	EngineHybrid       = "Híbrido (HEV/MHEV)"
	EngineElectric     = "Eléctrico (BEV)"
	EnginePluginHybrid = "Híbrido Enchufable (PHEV)"
	EngineLPG          = "GLP"
	EngineCNG          = "GNC"
)

// EngineTypes lists the engine types in menu order.
var EngineTypes = []string{
	EngineDiesel,
	EngineGasoline,
	EngineHybrid,
	EngineElectric,
	EnginePluginHybrid,
	EngineLPG,
	EngineCNG,
}

// IsEngineType reports whether s is one of EngineTypes.
func IsEngineType(s string) bool {
	for _, e := range EngineTypes {
		if s == e {
			return true
		}
	}
	return false
}

// NormalizeEngine NFC-normalizes and trims an engine label without changing
// its case, so "Diésel" typed in decomposed form matches EngineDiesel.
func NormalizeEngine(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
