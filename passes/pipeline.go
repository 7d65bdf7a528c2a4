package passes

import (
	"context"
	"io"
	"log/slog"

	"github.com/gogpu/mixer/spirv"
)

// Options configures Run.
type Options struct {
	// Validate runs Validate on the finished module.
	Validate bool

	// Logger receives a Debug record per stage. Nil discards them.
	Logger *slog.Logger
}

// Report counts what each stage did.
type Report struct {
	Replaced     int // placeholders replaced by canonical instructions
	TypesRemoved int
	Reordered    int // function variables hoisted
	Renumbered   int
	Dropped      int // no-ops removed by compaction
}

type stage struct {
	name string
	run  func() error
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// Run links independently generated mixin modules into one finished module:
// Merge, ReplaceVariables, RemoveDuplicateTypes, OrderFunctionVariables,
// ReduceBound and Compact, then Validate when asked. The first failing stage
// ends the run. The context is checked between stages.
func Run(ctx context.Context, units []Unit, opts Options) (*spirv.Module, Report, error) {
	var report Report
	log := opts.Logger
	if log == nil {
		log = discard
	}

	m, err := Merge(units)
	if err != nil {
		return nil, report, err
	}
	log.Debug("merged", "units", len(units), "bound", m.Header.Bound, "functions", m.FunctionCount())

	stages := []stage{
		{"replace-variables", func() (err error) {
			report.Replaced, err = ReplaceVariables(m)
			return err
		}},
		{"remove-duplicate-types", func() (err error) {
			report.TypesRemoved, err = RemoveDuplicateTypes(m)
			return err
		}},
		{"order-function-variables", func() (err error) {
			report.Reordered, err = OrderFunctionVariables(m)
			return err
		}},
		{"reduce-bound", func() (err error) {
			report.Renumbered, err = ReduceBound(m)
			return err
		}},
		{"compact", func() error {
			report.Dropped = Compact(m)
			return nil
		}},
	}
	if opts.Validate {
		stages = append(stages, stage{"validate", func() error { return Validate(m) }})
	}

	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		if err := st.run(); err != nil {
			return nil, report, err
		}
		log.Debug(st.name, "bound", m.Header.Bound)
	}
	return m, report, nil
}
