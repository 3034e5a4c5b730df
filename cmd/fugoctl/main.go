// Command fugoctl drives coevolution runs and persisted fuzzy systems
// from the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"fugo/internal/model"
	fugoapi "fugo/pkg/fugo"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "eval":
		return runEval(ctx, args[1:])
	case "predict":
		return runPredict(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return nil
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type usageError string

func (e usageError) Error() string {
	return string(e) + "\n\nrun \"fugoctl help\" for usage"
}

func printUsage(w *os.File) {
	fmt.Fprint(w, `fugoctl - coevolutionary fuzzy system learner

commands:
  run      -dataset <csv> [-config <json>] [-seed N] [-selection tournament|roulette] [-thresholds 0.5,...]
  eval     -system <xml> -dataset <csv>
  predict  -system <xml> -dataset <csv>
  runs     [-limit N]
  export   -run <id> -out <xml>

store flags (all commands):
  -store memory|sqlite    backend (default memory)
  -db <path>              sqlite database path
  -artifacts <dir>        run artifacts directory (default runs)
`)
}

type storeFlags struct {
	kind      string
	dbPath    string
	artifacts string
}

func addStoreFlags(fs *flag.FlagSet) *storeFlags {
	sf := &storeFlags{}
	fs.StringVar(&sf.kind, "store", "memory", "store backend: memory or sqlite")
	fs.StringVar(&sf.dbPath, "db", "fugo.db", "sqlite database path")
	fs.StringVar(&sf.artifacts, "artifacts", "runs", "run artifacts directory")
	return sf
}

func (sf *storeFlags) client(ctx context.Context) (*fugoapi.Client, error) {
	return fugoapi.NewClient(ctx, fugoapi.Options{
		StoreKind:    sf.kind,
		DBPath:       sf.dbPath,
		ArtifactsDir: sf.artifacts,
	})
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	datasetPath := fs.String("dataset", "", "dataset CSV path (semicolon separated)")
	configPath := fs.String("config", "", "JSON parameter file")
	seed := fs.Int64("seed", 0, "RNG seed; 0 seeds from the clock")
	selection := fs.String("selection", "tournament", "parent selection: tournament or roulette")
	thresholds := fs.String("thresholds", "", "comma-separated per-output thresholds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *datasetPath == "" {
		return usageError("run: -dataset is required")
	}

	params := model.Default()
	if *configPath != "" {
		loaded, err := loadParamsFromConfig(*configPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", *configPath, err)
		}
		params = loaded
	}
	if *thresholds != "" {
		parsed, err := parseFloatList(*thresholds)
		if err != nil {
			return usageError("run: invalid -thresholds value")
		}
		params.Thresholds = parsed
	}

	client, err := sf.client(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	started := time.Now()
	summary, err := client.Run(ctx, fugoapi.RunRequest{
		DatasetPath: *datasetPath,
		Params:      params,
		Selection:   *selection,
		Seed:        *seed,
	})
	if err != nil {
		return err
	}

	fmt.Printf("run %s finished (%s) in %s\n", summary.RunID, summary.Terminated, time.Since(started).Round(time.Millisecond))
	fmt.Printf("best fitness: %.4f\n", summary.BestFitness)
	printMetrics(summary.BestMetrics)
	if summary.SystemPath != "" {
		fmt.Printf("champion system: %s\n", summary.SystemPath)
	}
	fmt.Printf("artifacts: %s\n", summary.ArtifactsDir)
	return nil
}

func runEval(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	systemPath := fs.String("system", "", "persisted fuzzy system XML")
	datasetPath := fs.String("dataset", "", "dataset CSV path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *systemPath == "" || *datasetPath == "" {
		return usageError("eval: -system and -dataset are required")
	}

	client, err := sf.client(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	metrics, err := client.Evaluate(ctx, *systemPath, *datasetPath)
	if err != nil {
		return err
	}
	fmt.Printf("fitness: %.4f\n", metrics.Fitness)
	printMetrics(metrics)
	return nil
}

func printMetrics(m model.FitnessMetrics) {
	fmt.Printf("sensitivity: %.4f  specificity: %.4f  accuracy: %.4f  ppv: %.4f\n",
		m.Sensitivity, m.Specificity, m.Accuracy, m.PPV)
	fmt.Printf("rmse: %.4f  mse: %.4f  rrse: %.4f  rae: %.4f\n",
		m.RMSE, m.MSE, m.RRSE, m.RAE)
	fmt.Printf("adm: %.4f  mdm: %.4f  size: %.4f  overlearn: %.4f\n",
		m.ADM, m.MDM, m.Size, m.OverLearn)
}

func runPredict(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	systemPath := fs.String("system", "", "persisted fuzzy system XML")
	datasetPath := fs.String("dataset", "", "dataset CSV path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *systemPath == "" || *datasetPath == "" {
		return usageError("predict: -system and -dataset are required")
	}

	client, err := sf.client(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	predictions, err := client.Predict(ctx, *systemPath, *datasetPath)
	if err != nil {
		return err
	}
	for _, p := range predictions {
		values := make([]string, len(p.Defuzz))
		for i := range p.Defuzz {
			values[i] = fmt.Sprintf("%.4f (%g)", p.Defuzz[i], p.Classes[i])
		}
		fmt.Printf("sample %d: %s\n", p.Sample, strings.Join(values, "  "))
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	limit := fs.Int("limit", 20, "maximum runs to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := sf.client(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	runs, err := client.Runs(ctx, *limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	for _, r := range runs {
		age := r.CreatedAtUTC
		if created, err := time.Parse(time.RFC3339, r.CreatedAtUTC); err == nil {
			age = humanize.Time(created)
		}
		fmt.Printf("%s  %-12s  gens=%s  pop=%s/%s  best=%.4f  %s  (%s)\n",
			r.RunID, r.DatasetName,
			humanize.Comma(int64(r.Generations)),
			humanize.Comma(int64(r.PopSizeMembers)), humanize.Comma(int64(r.PopSizeRules)),
			r.FinalBestFitness, r.Terminated, age)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	runID := fs.String("run", "", "run id")
	outPath := fs.String("out", "", "output XML path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" || *outPath == "" {
		return usageError("export: -run and -out are required")
	}

	client, err := sf.client(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.ExportChampion(ctx, *runID, *outPath); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *outPath)
	return nil
}

// parseFloatList reads "0.5,0.3" style threshold lists.
func parseFloatList(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
