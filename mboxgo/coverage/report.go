package coverage

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// PointReport is the exported state of one coverpoint, or of the root when Bins is empty.
type PointReport struct {
	Size       int               `yaml:"size" json:"size"`
	Covered    int               `yaml:"coverage" json:"coverage"`
	Percentage float64           `yaml:"cover_percentage" json:"coverPercentage"`
	AtLeast    uint64            `yaml:"at_least,omitempty" json:"atLeast,omitempty"`
	Bins       map[string]uint64 `yaml:"bins:_hits,omitempty" json:"bins,omitempty"`

	order []string
}

// Report is a snapshot of a tracker, keyed by coverpoint name.
type Report struct {
	Samples uint64
	Root    PointReport
	Points  map[string]PointReport
}

func percentage(covered, size int) float64 {
	if size == 0 {
		return 100
	}
	return float64(covered) * 100 / float64(size)
}

// Report snapshots the tracker. Later samples do not affect the returned report.
func (t *Tracker) Report() Report {
	r := Report{
		Samples: t.samples,
		Root: PointReport{
			Size:       t.Size(),
			Covered:    t.Covered(),
			Percentage: t.Coverage(),
		},
		Points: make(map[string]PointReport, len(Points)),
	}
	for _, p := range t.points() {
		pr := PointReport{
			Size:       len(p.bins),
			Covered:    p.covered,
			Percentage: percentage(p.covered, len(p.bins)),
			AtLeast:    t.atLeast,
			Bins:       make(map[string]uint64, len(p.bins)),
			order:      append([]string(nil), p.bins...),
		}
		for i, b := range p.bins {
			pr.Bins[b] = p.hits[i]
		}
		r.Points[p.name] = pr
	}
	return r
}

func (r Report) document() map[string]PointReport {
	doc := make(map[string]PointReport, len(r.Points)+1)
	doc[Root] = r.Root
	for name, p := range r.Points {
		doc[name] = p
	}
	return doc
}

// EncodeYAML writes the report in the flat "name -> point" layout of coverage databases.
func (r Report) EncodeYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r.document()); err != nil {
		return fmt.Errorf("failed to encode coverage: %w", err)
	}
	return enc.Close()
}

// WriteYAML exports the report to path.
func (r Report) WriteYAML(path string, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to open coverage output %q: %w", path, err)
	}
	if err := r.EncodeYAML(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadYAML loads a report exported by WriteYAML.
func ReadYAML(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read coverage %q: %w", path, err)
	}
	var doc map[string]PointReport
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Report{}, fmt.Errorf("failed to decode coverage %q: %w", path, err)
	}
	r := Report{Root: doc[Root], Points: make(map[string]PointReport)}
	for name, p := range doc {
		if name != Root {
			r.Points[name] = p
		}
	}
	return r, nil
}

// String renders the report with per-bin hit counts, in declaration order.
func (r Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d/%d bins covered (%.2f%%), %d samples\n",
		Root, r.Root.Covered, r.Root.Size, r.Root.Percentage, r.Samples)
	for _, name := range Points {
		p, ok := r.Points[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "  %s: %d/%d bins covered (%.2f%%)\n", name, p.Covered, p.Size, p.Percentage)
		order := p.order
		if len(order) == 0 {
			order = make([]string, 0, len(p.Bins))
			for b := range p.Bins {
				order = append(order, b)
			}
			sort.Strings(order)
		}
		for _, b := range order {
			mark := " "
			if p.Bins[b] >= p.AtLeast {
				mark = "*"
			}
			fmt.Fprintf(&sb, "    %s %-22s %d\n", mark, b, p.Bins[b])
		}
	}
	return sb.String()
}
