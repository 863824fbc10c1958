package metrics

import (
	"fmt"

	"fritzbox-exporter/internal/config"
)

// FromConfig turns the definitions declared in the config file into Definitions.
func FromConfig(cds []config.Definition) ([]Definition, error) {
	defs := make([]Definition, 0, len(cds))

	for _, cd := range cds {
		kind, err := ParseKind(cd.Kind)
		if err != nil {
			return nil, fmt.Errorf("metric %s: %w", cd.Name, err)
		}

		conv, err := converterFor(cd)
		if err != nil {
			return nil, fmt.Errorf("metric %s: %w", cd.Name, err)
		}

		defs = append(defs, Definition{
			Name:    cd.Name,
			Help:    cd.Help,
			Kind:    kind,
			Call:    RemoteCall{Service: cd.Service, Action: cd.Action},
			Field:   cd.Field,
			Convert: conv,
		})
	}

	return defs, nil
}

func converterFor(cd config.Definition) (Converter, error) {
	set := 0
	var conv Converter = Float

	if cd.Scale != 0 {
		set++
		conv = Scale(cd.Scale)
	}
	if cd.Bool {
		set++
		conv = Bool
	}
	if len(cd.Enum) > 0 {
		set++
		conv = Enum(cd.Enum)
	}

	if set > 1 {
		return nil, fmt.Errorf("only one of scale, bool and enum may be set")
	}

	return conv, nil
}
