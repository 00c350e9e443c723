package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/mfjansen/mocsim/internal/config"
	"github.com/mfjansen/mocsim/internal/coupling"
	"github.com/mfjansen/mocsim/internal/export"
	"github.com/mfjansen/mocsim/internal/metrics"
	"github.com/mfjansen/mocsim/internal/storage"
	"github.com/mfjansen/mocsim/internal/sweep"
	"github.com/mfjansen/mocsim/internal/viz"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	mode       string
	dtDays     float64
	steps      int
	every      int
	record     int
	jsonOut    string
	perFrame   int
	saveFile   string
	sweepArgs  []string
	workers    int
	bestMetric string
	minimize   bool
	svgOut     string
	pngOut     string
	psiSO      float64
	plotPsi    bool
)

const defaultPreset = "two-basin"

func main() {
	rootCmd := &cobra.Command{
		Use:   "mocsim",
		Short: "reduced-order model of the meridional overturning circulation",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(lvl)
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".mocsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "integrate a coupled configuration and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runModel,
	}
	addRunFlags(runCmd)
	runCmd.Flags().StringVar(&mode, "mode", "", "transient or equilibrium")
	runCmd.Flags().IntVar(&record, "record", 12, "record a history sample every n steps (0 disables)")
	runCmd.Flags().StringVar(&jsonOut, "json", "", "also export the final state as JSON to this path")

	equilibriumCmd := &cobra.Command{
		Use:   "equilibrium [preset]",
		Short: "solve the steady single-column problem for the depth of the overturning",
		Args:  cobra.MaximumNArgs(1),
		RunE:  solveEquilibrium,
	}
	equilibriumCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	equilibriumCmd.Flags().Float64Var(&psiSO, "psi-so", 0, "constant Southern Ocean overturning (Sv), replacing the configured one")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "integrate with a live terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)
	liveCmd.Flags().IntVar(&perFrame, "per-frame", 12, "steps per frame")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the final profiles and history of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export the final profiles of a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [preset]",
		Short: "list presets or print one as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showPresets,
	}
	presetsCmd.Flags().StringVar(&saveFile, "save", "", "write the preset to this file")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "run a preset over a grid of parameter values",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepArgs, "param", nil, "swept parameter as name=v1,v2,... (repeatable)")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (0 uses all cores)")
	sweepCmd.Flags().StringVar(&bestMetric, "best", "", "report the point with the largest value of this metric")
	sweepCmd.Flags().BoolVar(&minimize, "minimize", false, "report the smallest value instead")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "write the final buoyancy profiles of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVar(&svgOut, "out", "", "output path (default stdout)")

	exportPNGCmd := &cobra.Command{
		Use:   "export-png [run_id]",
		Short: "render the final profiles of a run as PNG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportPNG,
	}
	exportPNGCmd.Flags().StringVar(&pngOut, "out", "", "output path (default <run_id>.png)")
	exportPNGCmd.Flags().BoolVar(&plotPsi, "psi", false, "plot the link streamfunctions instead of buoyancy")

	rootCmd.AddCommand(runCmd, equilibriumCmd, liveCmd, sweepCmd, listCmd, plotCmd, exportCmd, exportJSONCmd, exportSVGCmd, exportPNGCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().Float64Var(&dtDays, "dt", config.DefaultDt/config.Day, "time step in days")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of time steps")
	cmd.Flags().IntVar(&every, "every", config.DefaultUpdateEvery, "steps between transport refreshes")
}

// loadConfig picks the config file if given, else the named preset, and
// applies the flags the user set explicitly.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		name string
	)
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg, name = loaded, "config"
	default:
		name = defaultPreset
		if len(args) > 0 {
			name = args[0]
		}
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
	}

	flags := cmd.Flags()
	if flags.Lookup("dt") != nil && flags.Changed("dt") {
		cfg.Dt = dtDays * config.Day
	}
	if flags.Lookup("steps") != nil && flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Lookup("every") != nil && flags.Changed("every") {
		cfg.UpdateEvery = every
	}
	if flags.Lookup("mode") != nil && flags.Changed("mode") {
		cfg.Mode = mode
	}
	return cfg, name, nil
}

func attachMetrics(d *coupling.Driver, cfg *config.Config) *metrics.Stability {
	for _, tw := range cfg.ThermalWind {
		d.AddMetric(metrics.NewMaxOverturning(tw.Name))
		d.AddMetric(metrics.NewMeanTransport(tw.Name))
	}
	for _, r := range cfg.Residual {
		d.AddMetric(metrics.NewMaxOverturning(r.Name))
	}
	for _, c := range cfg.Columns {
		d.AddMetric(metrics.NewContentDrift(c.Name))
	}
	stab := metrics.NewStability(1e-12)
	d.AddMetric(stab)
	return stab
}

func runModel(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	log := logrus.WithField("run", name)

	d, err := config.Build(cfg, log)
	if err != nil {
		return err
	}
	stab := attachMetrics(d, cfg)
	var rec *storage.Recorder
	if record > 0 {
		rec = storage.NewRecorder(record)
		d.AddObserver(rec)
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.WithFields(logrus.Fields{"steps": cfg.Steps, "dt_days": cfg.Dt / config.Day, "mode": cfg.Mode}).Info("starting run")
	start := time.Now()

	var result *coupling.Result
	if cfg.Mode == "equilibrium" {
		result, err = d.RunEquilibrium(ctx, cfg.Steps)
	} else {
		result, err = d.RunTransient(ctx, cfg.Steps)
	}
	if err != nil {
		return err
	}
	if inv, col := stab.Worst(); inv > 0 {
		log.WithFields(logrus.Fields{"column": col, "inversion": inv}).Warn("static instability observed")
	}

	runID, err := st.Save(name, cfg.Dt, cfg.UpdateEvery, result, rec)
	if err != nil {
		return err
	}
	if jsonOut != "" {
		if err := storage.ExportJSONFile(jsonOut, name, cfg.Dt, result); err != nil {
			return err
		}
	}

	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d (%.1f years), refreshes: %d\n", result.StepsTaken, result.Final.Time/config.Year, result.Refreshes)
	fmt.Println("\nmetrics:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, n := range sortedKeys(result.Metrics) {
		fmt.Fprintf(w, "  %s\t%.6g\n", n, result.Metrics[n])
	}
	return w.Flush()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func solveEquilibrium(cmd *cobra.Command, args []string) error {
	if configFile == "" && len(args) == 0 {
		args = []string{"single-basin"}
	}
	cfg, name, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("psi-so") && cfg.Equilibrium != nil {
		cfg.Equilibrium.PsiSO = config.OverturningConfig{Value: psiSO}
	}
	s, err := config.BuildEquilibrium(cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := s.Solve(); err != nil {
		return err
	}
	iters, residual := s.Iterations()
	logrus.WithFields(logrus.Fields{
		"preset":     name,
		"iterations": iters,
		"residual":   residual,
		"elapsed":    time.Since(start),
	}).Info("equilibrium solved")

	fmt.Printf("overturning depth H: %.1f m\n", s.H())
	fmt.Printf("bottom gradient: %.4g 1/s^2\n\n", s.BottomGradient())
	b, psi := s.B(), s.Psi()
	opts := viz.PlotOptions{Height: 10, Width: 70}
	fmt.Println(viz.ProfilePlot("b (m/s^2)", []string{"b"}, [][]float64{b}, opts))
	fmt.Println()
	fmt.Println(viz.ProfilePlot("psi (Sv)", []string{"psi"}, [][]float64{psi}, opts))
	fmt.Println()
	fmt.Print(viz.Summary([]string{"b", "psi"}, [][]float64{b, psi}))
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	// Log lines would tear the alternate screen.
	quiet := logrus.New()
	quiet.SetLevel(logrus.WarnLevel)
	quiet.SetOutput(os.Stderr)
	d, err := config.Build(cfg, quiet)
	if err != nil {
		return err
	}
	return viz.Run(viz.NewModel(d, name, cfg.Steps, perFrame))
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMODE\tTIME\tSTEPS\tYEARS\tCOLUMNS\tLINKS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.1f\t%d\t%d\n",
			run.ID,
			run.Name,
			run.Mode,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.ModelTime/config.Year,
			len(run.Columns),
			len(run.Links),
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	p, err := st.LoadProfiles(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("after %.1f years (%d steps)\n\n", meta.ModelTime/config.Year, meta.Steps)

	opts := viz.PlotOptions{Height: 12, Width: 80}
	cols := make([][]float64, len(meta.Columns))
	for i, name := range meta.Columns {
		cols[i] = p.Columns[name]
	}
	fmt.Println(viz.ProfilePlot("b (m/s^2)", meta.Columns, cols, opts))
	fmt.Println()

	links := make([][]float64, len(meta.Links))
	for i, name := range meta.Links {
		links[i] = p.Links[name]
	}
	if len(links) > 0 {
		fmt.Println(viz.ProfilePlot("psi (Sv)", meta.Links, links, opts))
		fmt.Println()
	}

	hist, err := st.LoadHistory(runID)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, name := range meta.Links {
		if series := hist["psimax_"+name]; len(series) > 1 {
			fmt.Println(viz.SeriesPlot("max psi "+name+" (Sv) vs time", series, viz.PlotOptions{Height: 8, Width: 80}))
			fmt.Println()
		}
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	p, err := st.LoadProfiles(runID)
	if err != nil {
		return err
	}

	data := storage.ExportData{
		Name:      meta.Name,
		Mode:      meta.Mode,
		Dt:        meta.Dt,
		Steps:     meta.Steps,
		Refreshes: meta.Refreshes,
		Time:      meta.ModelTime,
		Z:         p.Z,
		Columns:   p.Columns,
		Links:     p.Links,
		Metrics:   meta.Metrics,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func showPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Println("available presets:")
		for _, name := range config.ListPresets() {
			cfg := config.GetPreset(name)
			fmt.Printf("  %-14s %d columns, %d thermal wind, %d residual, %d steps\n",
				name, len(cfg.Columns), len(cfg.ThermalWind), len(cfg.Residual), cfg.Steps)
		}
		return nil
	}

	cfg := config.GetPreset(args[0])
	if cfg == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
	}
	if saveFile != "" {
		return config.Save(saveFile, cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	params := make([]sweep.Parameter, 0, len(sweepArgs))
	for _, a := range sweepArgs {
		p, err := sweep.ParseParameter(a)
		if err != nil {
			return err
		}
		params = append(params, p)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	base := cfg.Clone

	log := logrus.WithField("sweep", name)
	s, err := sweep.New(base, params, sweep.Options{
		Workers: workers,
		Attach:  func(d *coupling.Driver, cfg *config.Config) { attachMetrics(d, cfg) },
		Logger:  log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	points, err := s.Run(ctx)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"points": len(points), "elapsed": time.Since(start)}).Info("sweep complete")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, p := range points {
		if p.Err != nil {
			fmt.Fprintf(w, "%s\tfailed: %v\n", p.Label(), p.Err)
			continue
		}
		fmt.Fprintf(w, "%s", p.Label())
		for _, k := range sortedKeys(p.Metrics) {
			fmt.Fprintf(w, "\t%s=%.4g", k, p.Metrics[k])
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if bestMetric != "" {
		best, ok := sweep.Best(points, bestMetric, minimize)
		if !ok {
			return fmt.Errorf("no successful point reports %s", bestMetric)
		}
		fmt.Printf("\nbest %s: %.6g at %s\n", bestMetric, best.Metrics[bestMetric], best.Label())
	}
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	p, err := st.LoadProfiles(runID)
	if err != nil {
		return err
	}

	cols := make([][]float64, len(meta.Columns))
	for i, name := range meta.Columns {
		cols[i] = p.Columns[name]
	}
	title := fmt.Sprintf("%s: b after %.1f years", meta.Name, meta.ModelTime/config.Year)
	svg := export.ProfilesSVG(title, p.Z, meta.Columns, cols, 800, 600)
	if svgOut == "" {
		_, err := fmt.Print(svg)
		return err
	}
	return os.WriteFile(svgOut, []byte(svg), 0644)
}

func exportPNG(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	p, err := st.LoadProfiles(runID)
	if err != nil {
		return err
	}

	names, series, label := meta.Columns, p.Columns, "b (m/s²)"
	if plotPsi {
		names, series, label = meta.Links, p.Links, "ψ (Sv)"
	}
	profiles := make([][]float64, len(names))
	for i, name := range names {
		profiles[i] = series[name]
	}

	out := pngOut
	if out == "" {
		out = runID + ".png"
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	title := fmt.Sprintf("%s after %.1f years", meta.Name, meta.ModelTime/config.Year)
	if err := export.WriteProfilesPNG(f, title, label, p.Z, names, profiles, 6, 5); err != nil {
		return err
	}
	logrus.WithField("path", out).Info("wrote profile plot")
	return nil
}
