package ingest

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genBatch builds batches from a small hash alphabet so that duplicates
// inside and across batches are common. Roughly one entry in eight is
// missing its timestamp.
func genBatch() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, 63)).Map(func(seeds []int) []json.RawMessage {
		out := make([]json.RawMessage, 0, len(seeds))
		for _, n := range seeds {
			hash := fmt.Sprintf("h%d", n%24)
			ts := 100 + (n*7)%50
			var line string
			switch n % 8 {
			case 0:
				line = fmt.Sprintf(`{"kind":"message","hash":%q}`, hash)
			case 1:
				line = fmt.Sprintf(`{"timestamp":%d,"kind":"found","hash":%q,"device_name":"d%d","device_type":"keyboard","device_vid":%d,"device_pid":%d}`, ts, hash, n, n, n*3)
			case 2:
				line = fmt.Sprintf(`{"timestamp":%d,"kind":"progress","hash":%q,"current":%d,"target":64,"percent":%d}`, ts, hash, n, n*100/64)
			case 3:
				line = fmt.Sprintf(`{"timestamp":%d,"kind":"current_device","hash":%q,"device_name":"d%d"}`, ts, hash, n)
			case 4:
				line = fmt.Sprintf(`{"timestamp":%d,"kind":"future_kind","hash":%q}`, ts, hash)
			default:
				line = fmt.Sprintf(`{"timestamp":%d,"kind":"message","hash":%q,"level":"warning","text":"t%d"}`, ts, hash, n)
			}
			out = append(out, json.RawMessage(line))
		}
		return out
	})
}

func TestIngestProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("replaying a batch leaves state unchanged", prop.ForAll(
		func(b []json.RawMessage) bool {
			once := NewSession(Options{})
			once.Process(b)

			twice := NewSession(Options{})
			twice.Process(b)
			rep := twice.Process(b)

			return rep.Dispatched == 0 &&
				once.Watermark() == twice.Watermark() &&
				once.SeenCount() == twice.SeenCount() &&
				once.State().FoundCount() == twice.State().FoundCount() &&
				once.State().Progress() == twice.State().Progress() &&
				once.State().Log().Len(ViewAll) == twice.State().Log().Len(ViewAll)
		},
		genBatch(),
	))

	properties.Property("watermark never decreases", prop.ForAll(
		func(batches [][]json.RawMessage) bool {
			s := NewSession(Options{})
			last := s.Watermark()
			for _, b := range batches {
				s.Process(b)
				if s.Watermark() < last {
					return false
				}
				last = s.Watermark()
			}
			return true
		},
		gen.SliceOf(genBatch()),
	))

	properties.Property("each hash is dispatched at most once", prop.ForAll(
		func(batches [][]json.RawMessage) bool {
			s := NewSession(Options{})
			dispatched := 0
			for _, b := range batches {
				dispatched += s.Process(b).Dispatched
			}
			// Every dispatch inserts exactly one new hash.
			return dispatched == s.SeenCount()
		},
		gen.SliceOf(genBatch()),
	))

	properties.Property("found count equals device rows", prop.ForAll(
		func(b []json.RawMessage) bool {
			s := NewSession(Options{})
			s.Process(b)
			return s.State().FoundCount() == len(s.State().Devices())
		},
		genBatch(),
	))

	properties.TestingRun(t)
}
