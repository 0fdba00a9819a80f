// Command fixelcfestats runs whole-brain connectivity-based fixel
// enhancement with permutation testing for family-wise-error-corrected
// group statistics.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"fixelcfestats/internal/models"
	"fixelcfestats/pkg/cfe"
	"fixelcfestats/pkg/config"
	"fixelcfestats/pkg/connectivity"
	"fixelcfestats/pkg/fixelerrs"
	"fixelcfestats/pkg/fixelindex"
	"fixelcfestats/pkg/fixelio"
	"fixelcfestats/pkg/glm"
	"fixelcfestats/pkg/logging"
	"fixelcfestats/pkg/matrixio"
	"fixelcfestats/pkg/permute"
	"fixelcfestats/pkg/preview"
	"fixelcfestats/pkg/progress"
	"fixelcfestats/pkg/streamline"
	"fixelcfestats/pkg/subject"
	"fixelcfestats/pkg/trackmap"
	"fixelcfestats/pkg/workerpool"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file, overridden by any flag explicitly set")
	notest := flag.Bool("notest", false, "skip permutation testing, emit only population maps")
	nperms := flag.Int("nperms", 5000, "number of permutations, in [1, 100000]")
	cfeDh := flag.Float64("cfe_dh", 0.1, "height integration step")
	cfeE := flag.Float64("cfe_e", 2.0, "extent exponent")
	cfeH := flag.Float64("cfe_h", 1.0, "height exponent")
	cfeC := flag.Float64("cfe_c", 0.1, "connectivity exponent")
	angle := flag.Float64("angle", 30.0, "direction match threshold in degrees, (0,90]")
	connectivityThreshold := flag.Float64("connectivity", 0.01, "row-normalised connectivity threshold, (0,1]")
	smooth := flag.Float64("smooth", 10.0, "Gaussian along-tract smoothing FWHM in mm (0 disables)")
	nonstationary := flag.Bool("nonstationary", false, "enable empirical non-stationarity adjustment")
	npermsNonstationary := flag.Int("nperms_nonstationary", 5000, "permutations for the non-stationarity pre-pass")
	workers := flag.Int("workers", runtime.NumCPU(), "worker goroutines per parallel phase")
	seed := flag.Int64("seed", 1, "master seed for the permutation engine's per-permutation PRNGs")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	logJSON := flag.Bool("log-json", false, "emit structured JSON logs instead of console output")
	noProgress := flag.Bool("no-progress", false, "disable progress bars")
	previewAxis := flag.String("preview-axis", "z", "axis for the diagnostic TDI slice preview: x, y, or z")
	previewSlice := flag.Int("preview-slice", -1, "voxel index for the diagnostic TDI slice preview, -1 disables it")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	applyExplicitFlags(cfg, notest, nperms, cfeDh, cfeE, cfeH, cfeC, angle, connectivityThreshold, smooth, nonstationary, npermsNonstationary, logLevel, logJSON)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "fixelcfestats:", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) != 6 {
		fmt.Fprintln(os.Stderr, "usage: fixelcfestats [options] input template design contrast tracks output")
		os.Exit(1)
	}
	inputPath, templatePath, designPath, contrastPath, tracksPath, outputPrefix := args[0], args[1], args[2], args[3], args[4], args[5]

	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, JSON: cfg.Logging.JSON})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, *workers, *seed, *noProgress || !cfg.Progress.Enabled, inputPath, templatePath, designPath, contrastPath, tracksPath, outputPrefix, preview.Axis(*previewAxis), *previewSlice, logger); err != nil {
		logger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

func applyExplicitFlags(cfg *config.Config, notest *bool, nperms *int, cfeDh, cfeE, cfeH, cfeC, angle, connectivityThreshold, smooth *float64, nonstationary *bool, npermsNonstationary *int, logLevel *string, logJSON *bool) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "notest":
			cfg.Stats.NoTest = *notest
		case "nperms":
			cfg.Stats.NumPerms = *nperms
		case "cfe_dh":
			cfg.Stats.CFEDh = *cfeDh
		case "cfe_e":
			cfg.Stats.CFEExtent = *cfeE
		case "cfe_h":
			cfg.Stats.CFEHeight = *cfeH
		case "cfe_c":
			cfg.Stats.CFEConnectivity = *cfeC
		case "angle":
			cfg.Stats.AngleDegrees = *angle
		case "connectivity":
			cfg.Stats.ConnectivityThreshold = *connectivityThreshold
		case "smooth":
			cfg.Stats.SmoothFWHM = *smooth
		case "nonstationary":
			cfg.Stats.Nonstationary = *nonstationary
		case "nperms_nonstationary":
			cfg.Stats.NumPermsNonstationary = *npermsNonstationary
		case "log-level":
			cfg.Logging.Level = *logLevel
		case "log-json":
			cfg.Logging.JSON = *logJSON
		}
	})
}

func run(cfg *config.Config, workers int, seed int64, noProgress bool, inputPath, templatePath, designPath, contrastPath, tracksPath, outputPrefix string, previewAxis preview.Axis, previewSlice int, logger *zap.Logger) error {
	start := time.Now()
	sig := workerpool.NewSignal()

	mask, err := openMask(templatePath)
	if err != nil {
		return err
	}
	table, index := fixelindex.Build(mask)
	logger.Info("fixel index built", zap.Int("num_fixels", table.NumFixels()))

	subjectPaths, err := matrixio.ReadInputList(inputPath)
	if err != nil {
		return err
	}
	designMat, err := matrixio.ReadMatrix(designPath)
	if err != nil {
		return err
	}
	contrastMat, err := matrixio.ReadMatrix(contrastPath)
	if err != nil {
		return err
	}
	if err := checkDimensions(subjectPaths, designMat, contrastMat); err != nil {
		return err
	}
	if err := checkSubjectsExist(subjectPaths); err != nil {
		return err
	}

	tracksFile, err := os.Open(tracksPath)
	if err != nil {
		return fmt.Errorf("fixelcfestats: opening %s: %w", tracksPath, fixelerrs.ErrInputNotFound)
	}
	defer tracksFile.Close()

	tracks, err := streamline.Open(tracksFile)
	if err != nil {
		return err
	}
	if tracks.Properties.Count() < 1_000_000 {
		logger.Warn("low streamline count", zap.Int("count", tracks.Properties.Count()))
	}

	trackBar := progressBar(noProgress, tracks.Properties.Count(), "tracks")
	trackRes, err := trackmap.Process(tracks, table, index, mask.Affine, mask.DimX, mask.DimY, mask.DimZ,
		trackmap.Config{AngleDegrees: cfg.Stats.AngleDegrees, Workers: workers}, sig, trackBar)
	if err != nil {
		return err
	}
	trackBar.Finish()
	logger.Info("track processing complete", zap.Duration("elapsed", time.Since(start)))

	if previewSlice >= 0 {
		if err := writeTDIPreview(trackRes.TDI, index, previewAxis, previewSlice, outputPrefix); err != nil {
			logger.Warn("preview render failed", zap.Error(err))
		}
	}

	connM, smoothM := connectivity.Finalize(trackRes.Matrix, trackRes.TDI, table.Positions, connectivity.Params{
		ConnectivityThreshold: cfg.Stats.ConnectivityThreshold,
		CFEConnectivity:       cfg.Stats.CFEConnectivity,
		SmoothFWHM:            cfg.Stats.SmoothFWHM,
	})

	subjectBar := progressBar(noProgress, len(subjectPaths), "subjects")
	data, err := subject.LoadAndSmooth(subjectPaths, index, table, smoothM,
		subject.Config{AngleDegrees: cfg.Stats.AngleDegrees, Workers: workers}, sig, subjectBar)
	if err != nil {
		return err
	}
	subjectBar.Finish()

	fit, err := glm.Prepare(designMat)
	if err != nil {
		return err
	}
	_, designCols := fit.Dims()
	_, contrastCols := contrastMat.Dims()
	contrastRow := padContrast(contrastMat.RawRowView(0), designCols)

	prov := &fixelio.Provenance{
		NumPermutations: cfg.Stats.NumPerms, CFEDh: cfg.Stats.CFEDh, CFEExtent: cfg.Stats.CFEExtent,
		CFEHeight: cfg.Stats.CFEHeight, CFEConnectivity: cfg.Stats.CFEConnectivity, AngleDegrees: cfg.Stats.AngleDegrees,
		ConnectivityThreshold: cfg.Stats.ConnectivityThreshold, SmoothFWHM: cfg.Stats.SmoothFWHM, Nonstationary: cfg.Stats.Nonstationary,
	}

	if err := writeAuxiliaryMaps(mask, table, data, fit, contrastRow, contrastCols, outputPrefix, prov); err != nil {
		return err
	}

	if cfg.Stats.NoTest {
		logger.Info("notest: skipping permutation testing", zap.Duration("elapsed", time.Since(start)))
		return nil
	}

	permBar := progressBar(noProgress, cfg.Stats.NumPerms, "permutations")
	res, err := permute.Run(data, designMat, contrastRow, fit, connM, cfe.Params{Dh: cfg.Stats.CFEDh, E: cfg.Stats.CFEExtent, H: cfg.Stats.CFEHeight},
		permute.Config{
			NumPerms: cfg.Stats.NumPerms, NumPermsNonstationary: cfg.Stats.NumPermsNonstationary,
			Workers: workers, Seed: seed, Nonstationary: cfg.Stats.Nonstationary,
		}, sig, permBar)
	if err != nil {
		return err
	}
	permBar.Finish()

	logger.Info("null distribution summary",
		zap.Float64("pos_mean", res.NullPosSummary.Mean), zap.Float64("pos_stddev", res.NullPosSummary.StdDev),
		zap.Float64("neg_mean", res.NullNegSummary.Mean), zap.Float64("neg_stddev", res.NullNegSummary.StdDev))

	if err := writeTestMaps(mask, table, res, outputPrefix, prov); err != nil {
		return err
	}

	logger.Info("run complete", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func openMask(path string) (*models.SparseVolume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fixelcfestats: opening %s: %w", path, fixelerrs.ErrInputNotFound)
	}
	defer f.Close()
	return fixelio.Read(f)
}

func checkDimensions(subjectPaths []string, design, contrast interface{ Dims() (int, int) }) error {
	s, designCols := design.Dims()
	if s != len(subjectPaths) {
		return fmt.Errorf("fixelcfestats: design has %d rows, input lists %d subjects: %w", s, len(subjectPaths), fixelerrs.ErrDimensionMismatch)
	}
	_, contrastCols := contrast.Dims()
	if contrastCols > designCols {
		return fmt.Errorf("fixelcfestats: contrast has %d columns, design only has %d: %w", contrastCols, designCols, fixelerrs.ErrDimensionMismatch)
	}
	return nil
}

// padContrast zero-pads row out to designCols entries (spec §3: "contrast
// matrix C x q, zero-padded to p columns"). The contrast's q entries apply
// to the design's leading q columns — e.g. a group+covariate design with a
// single-column contrast on the group column — and the padded zeros simply
// drop the trailing beta terms out of c.beta and c(X^T X)^-1 c^T.
func padContrast(row []float64, designCols int) []float64 {
	padded := make([]float64, designCols)
	copy(padded, row)
	return padded
}

// checkSubjectsExist implements spec §7's InputNotFound rule: a missing
// subject image must fail before any computation, not partway through the
// per-subject loading phase.
func checkSubjectsExist(paths []string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("fixelcfestats: %s: %w", p, fixelerrs.ErrInputNotFound)
		}
	}
	return nil
}

// writeTDIPreview renders a diagnostic PNG of the track density image on
// the requested slice, purely for eyeballing a run's connectivity coverage.
func writeTDIPreview(tdi []uint32, index *models.VoxelIndex, axis preview.Axis, position int, prefix string) error {
	volume := preview.TDIVolume(tdi, index)
	return preview.Render(volume, index.DimX, index.DimY, index.DimZ, axis, position, prefix+"_tdi_preview.png")
}

func progressBar(disabled bool, total int, label string) *progress.Bar {
	if disabled {
		return progress.None()
	}
	return progress.New(total, label)
}
