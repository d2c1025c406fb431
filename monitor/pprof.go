package monitor

import "github.com/google/pprof/profile"

// Sample is one labeled occupancy or depth reading.
type Sample struct {
	Labels map[string]string
	Kind   string
	Value  int64
}

// Profile is the monitor's own intermediate form, translated to a
// *profile.Profile only at the point of writing it out.
type Profile struct {
	SampleTypes []string
	Samples     []Sample
}

// toPprof builds a github.com/google/pprof/profile.Profile: one
// synthetic location/function per distinct label set (pprof samples
// are always anchored to a call stack; a scheduler occupancy reading
// has no call stack, so each bucket gets a single-frame pseudo-stack
// named after its labels).
func (p *Profile) toPprof() *profile.Profile {
	out := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "runqueue_occupancy", Unit: "tasks"},
			{Type: "mailbox_depth", Unit: "messages"},
		},
	}

	var nextID uint64
	for _, s := range p.Samples {
		nextID++
		fn := &profile.Function{ID: nextID, Name: frameName(s)}
		loc := &profile.Location{ID: nextID, Line: []profile.Line{{Function: fn}}}
		out.Function = append(out.Function, fn)
		out.Location = append(out.Location, loc)

		values := make([]int64, len(out.SampleType))
		for i, st := range out.SampleType {
			if st.Type == s.Kind {
				values[i] = s.Value
			}
		}

		labels := make(map[string][]string, len(s.Labels))
		for k, v := range s.Labels {
			labels[k] = []string{v}
		}

		out.Sample = append(out.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    values,
			Label:    labels,
		})
	}
	return out
}

func frameName(s Sample) string {
	name := s.Kind
	for k, v := range s.Labels {
		name += " " + k + "=" + v
	}
	return name
}
