// neonpool builds the forward and backward pooling kernels for a given
// geometry against a compute engine, reports the resulting execution net,
// and optionally runs it over deterministic inputs.
//
// Example:
//
//	neonpool -source=8,16,32,32 -window=2,2 -pool=max -run
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/janpfeifer/must"
	"github.com/x448/float16"
	"k8s.io/klog/v2"

	"github.com/Gametech-Dev/ngraph-neon/engine"
	_ "github.com/Gametech-Dev/ngraph-neon/engine/simplecpu"
	"github.com/Gametech-Dev/ngraph-neon/kernels"
	"github.com/Gametech-Dev/ngraph-neon/types/xslices"
)

var (
	flagEngine = flag.String("engine", "", "Engine to build against, in the form \"<name>:<config>\", e.g. "+
		"\"cpu:parallelism=4,maxmem=1GiB\". Defaults to the "+engine.EnvVarName+" environment variable, "+
		"or the first registered engine.")

	flagSource  = flag.String("source", "8,16,32,32", "Source tensor extents, batch-major [batch, channels, spatial...], comma-separated.")
	flagWindow  = flag.String("window", "2,2", "Pooling window extents, one per spatial axis.")
	flagStrides = flag.String("strides", "", "Window strides, one per spatial axis. Defaults to the window extents.")
	flagPadding = flag.String("padding", "", "Symmetric zero-padding per spatial axis. Defaults to no padding.")
	flagPool    = flag.String("pool", "max", "Pooling kind: max or avg.")
	flagDType   = flag.String("dtype", "float32", "Element type: float32, float64, float16 or bfloat16.")
	flagLayout  = flag.String("layout", "", "Explicit source layout (NCHW, NHWC, CHWN, NChw8c, NChw16c). "+
		"When unset the builder's default convention applies.")

	flagInference = flag.Bool("inference", false, "Build the forward kernel for inference: no workspace is "+
		"allocated and no backward kernel can be built, implies -forward_only.")
	flagForwardOnly = flag.Bool("forward_only", false, "Build only the forward kernel.")
	flagRun         = flag.Bool("run", false, "Run the net over deterministic inputs and report output checksums.")
)

func main() {
	flag.Parse()
	if flag.NArg() > 0 {
		klog.Errorf("Unexpected arguments %q. See 'neonpool -help'.", flag.Args())
		os.Exit(1)
	}

	var eng engine.Engine
	if *flagEngine == "" {
		eng = must.M1(engine.New())
	} else {
		eng = must.M1(engine.NewWithConfig(*flagEngine))
	}
	defer eng.Finalize()

	p := poolingFromFlags()
	net := kernels.NewNet(eng)
	defer net.Finalize()

	fwd := kernels.MustBuildPoolingForward(eng, net, p)
	if !*flagForwardOnly && !*flagInference {
		kernels.MustBuildPoolingBackward(eng, net, p, fwd)
	}

	report(eng, net, p)
	if *flagRun {
		run(net)
	}
}

// poolingFromFlags assembles the builder parameters, deriving the
// destination extents from the window geometry.
func poolingFromFlags() kernels.Pooling {
	source := parseExtents("source", *flagSource)
	if len(source) < 3 {
		klog.Errorf("Flag -source needs at least [batch, channels, one spatial axis], got %v.", source)
		os.Exit(1)
	}
	window := parseExtents("window", *flagWindow)
	strides := window
	if *flagStrides != "" {
		strides = parseExtents("strides", *flagStrides)
	}
	padding := xslices.SliceWithValue(len(window), 0)
	if *flagPadding != "" {
		padding = parseExtents("padding", *flagPadding)
	}

	outSpatial, err := engine.PoolingOutputDims(source[2:], window, strides, padding, padding)
	if err != nil {
		klog.Errorf("Window geometry does not fit the source extents: %v", err)
		os.Exit(1)
	}
	dest := append([]int{source[0], source[1]}, outSpatial...)

	p := kernels.Pooling{
		Kind:          must.M1(engine.PoolingKindString(*flagPool)),
		DType:         must.M1(dtypes.DTypeString(*flagDType)),
		SourceRank:    len(source),
		SourceExtents: source,
		DestRank:      len(dest),
		DestExtents:   dest,
		Window:        window,
		Strides:       strides,
		Padding:       padding,
	}
	if *flagLayout != "" {
		p.SourceLayout = kernels.ExplicitSourceLayout(must.M1(engine.FormatString(*flagLayout)))
	}
	if *flagInference {
		p.Prop = engine.ForwardInference
	}
	return p
}

func parseExtents(name, value string) []int {
	parts := strings.Split(value, ",")
	dims := make([]int, len(parts))
	for i, part := range parts {
		dim, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			klog.Errorf("Flag -%s: %q is not a comma-separated integer list.", name, value)
			os.Exit(1)
		}
		dims[i] = dim
	}
	return dims
}

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)

	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
)

func newPlainTable(withHeader bool) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if withHeader && row == 1 {
				s = headerRowStyle
				return
			}
			switch {
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
}

// roleRow is one tensor slot of a kernel for the report tables.
type roleRow struct {
	role string
	mem  engine.Memory
}

// kernelRoles names each bound tensor after its slot.
func kernelRoles(k *kernels.OpKernel) []roleRow {
	var rows []roleRow
	switch k.Type() {
	case kernels.OpPoolingForward:
		rows = append(rows, roleRow{"source", k.Input(0)}, roleRow{"destination", k.Output(0)})
		if ws, has := k.Workspace(); has {
			rows = append(rows, roleRow{"workspace", ws})
		}
	case kernels.OpPoolingBackward:
		rows = append(rows, roleRow{"diff-destination", k.Input(0)})
		if ws, has := k.Workspace(); has {
			rows = append(rows, roleRow{"workspace (shared)", ws})
		}
		rows = append(rows, roleRow{"diff-source", k.Output(0)})
	}
	return rows
}

func report(eng engine.Engine, net *kernels.Net, p kernels.Pooling) {
	fmt.Println(titleStyle.Render("Pooling"))
	table := newPlainTable(false)
	table.Row("engine", fmt.Sprintf("%s (%s)", eng.Name(), eng.Description()))
	table.Row("pooling", fmt.Sprintf("%s (%s)", p.Kind, p.Prop))
	table.Row("dtype", p.DType.String())
	table.Row("source", fmt.Sprintf("%v", p.SourceExtents))
	table.Row("destination", fmt.Sprintf("%v", p.DestExtents))
	table.Row("window", fmt.Sprintf("%v", p.Window))
	table.Row("strides", fmt.Sprintf("%v", p.Strides))
	table.Row("padding", fmt.Sprintf("%v", p.Padding))
	table.Row("source layout", p.SourceLayout.String())
	if la, ok := eng.(interface{ LiveBytes() int64 }); ok {
		table.Row("live tensor bytes", humanize.Bytes(uint64(la.LiveBytes())))
	}
	fmt.Println(table.Render())

	fmt.Println(titleStyle.Render("Kernels"))
	table = newPlainTable(true)
	table.Row("#", "Kernel", "Inputs", "Outputs")
	for i, k := range net.Kernels() {
		table.Row(strconv.Itoa(i), k.ID(),
			strconv.Itoa(k.NumInputs()), strconv.Itoa(k.NumOutputs()))
	}
	fmt.Println(table.Render())

	fmt.Println(titleStyle.Render("Tensors"))
	table = newPlainTable(true)
	table.Row("Kernel", "Role", "Descriptor", "Elements", "Bytes")
	for _, k := range net.Kernels() {
		for _, row := range kernelRoles(k) {
			desc := row.mem.Desc()
			table.Row(k.ID(), row.role, desc.String(),
				humanize.Comma(int64(desc.Shape.Size())),
				humanize.Bytes(uint64(desc.Shape.Memory())))
		}
	}
	fmt.Println(table.Render())
}

// run fills every kernel input deterministically, executes the net and
// reports a checksum per output tensor.
func run(net *kernels.Net) {
	for _, k := range net.Kernels() {
		switch k.Type() {
		case kernels.OpPoolingForward:
			must.M(fillRamp(k.Input(0)))
		case kernels.OpPoolingBackward:
			// Unit incoming gradient; the workspace input is produced by the
			// forward step of the same run.
			must.M(fillOnes(k.Input(0)))
		}
	}

	start := time.Now()
	must.M(net.Run())
	elapsed := time.Since(start)

	fmt.Println(titleStyle.Render("Run"))
	table := newPlainTable(true)
	table.Row("Kernel", "Role", "Checksum")
	for _, k := range net.Kernels() {
		for _, row := range kernelRoles(k) {
			table.Row(k.ID(), row.role, fmt.Sprintf("%.6g", checksum(row.mem)))
		}
	}
	fmt.Println(table.Render())
	fmt.Printf("Executed %d kernel(s) in %s.\n", net.Len(), elapsed)
}

// fillRamp writes a deterministic, sign-mixed ramp into a tensor.
func fillRamp(mem engine.Memory) error {
	indices := xslices.Iota(0, mem.Shape().Size())
	ramp := func(i int) float32 { return float32((i*13+7)%101 - 50) }
	switch mem.Shape().DType {
	case dtypes.Float32:
		return mem.FromFlat(xslices.Map(indices, ramp))
	case dtypes.Float64:
		return mem.FromFlat(xslices.Map(indices, func(i int) float64 { return float64(ramp(i)) }))
	case dtypes.Float16:
		return mem.FromFlat(xslices.Map(indices, func(i int) float16.Float16 { return float16.Fromfloat32(ramp(i)) }))
	case dtypes.BFloat16:
		return mem.FromFlat(xslices.Map(indices, func(i int) bfloat16.BFloat16 { return bfloat16.FromFloat32(ramp(i)) }))
	}
	return fmt.Errorf("cannot fill %s tensor", mem.Shape().DType)
}

// fillOnes writes 1 into every element, in place.
func fillOnes(mem engine.Memory) error {
	switch flat := mem.Flat().(type) {
	case []float32:
		xslices.FillSlice(flat, 1)
	case []float64:
		xslices.FillSlice(flat, 1)
	case []float16.Float16:
		xslices.FillSlice(flat, float16.Fromfloat32(1))
	case []bfloat16.BFloat16:
		xslices.FillSlice(flat, bfloat16.FromFloat32(1))
	default:
		return fmt.Errorf("cannot fill %s tensor", mem.Shape().DType)
	}
	return nil
}

// checksum sums a tensor's elements in float64.
func checksum(mem engine.Memory) float64 {
	var sum float64
	switch flat := mem.Flat().(type) {
	case []float32:
		for _, v := range flat {
			sum += float64(v)
		}
	case []float64:
		for _, v := range flat {
			sum += v
		}
	case []float16.Float16:
		for _, v := range flat {
			sum += float64(v.Float32())
		}
	case []bfloat16.BFloat16:
		for _, v := range flat {
			sum += float64(v.Float32())
		}
	case []int32:
		for _, v := range flat {
			sum += float64(v)
		}
	}
	return sum
}
