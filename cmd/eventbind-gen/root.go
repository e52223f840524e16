package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/drblury/eventbind/internal/compiler"
	"github.com/drblury/eventbind/internal/discovery"
	"github.com/drblury/eventbind/internal/emitter"
	configpkg "github.com/drblury/eventbind/internal/runtime/config"
	loggingpkg "github.com/drblury/eventbind/internal/runtime/logging"
)

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"strategy":     "strategy",
	"dir":          "source_dirs",
	"tags":         "build_tags",
	"out":          "output_dir",
	"package":      "output_package",
	"package-path": "output_package_path",
	"manifest":     "manifest",
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "eventbind-gen",
		Short: "Generate subscriber bindings for a Go package",
		Long: `eventbind-gen scans Go sources for methods marked with //eventbind:subscribe
and writes eventbind_gen.go, which holds the binding table a dispatcher uses to
register listeners.

Strategies:
  deferred   methods are looked up by name when a listener is registered
             (aliases: reflective, deferred-lookup)
  direct     methods are called through compiled function values
             (aliases: anonymous, direct-call)

Examples:
  eventbind-gen --dir ./billing --out ./billing
  eventbind-gen --strategy direct --dir ./internal --out ./internal/bindings --manifest
  eventbind-gen --config eventbind.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.Flags()
	flags.String("strategy", "deferred", "Binding strategy: deferred or direct")
	flags.StringSlice("dir", []string{"."}, "Source directories to scan (repeatable)")
	flags.StringSlice("tags", nil, "Build tags files must satisfy, as in go build -tags")
	flags.String("out", ".", "Directory receiving the generated files")
	flags.String("package", "", "Package name of the generated file (derived from the output directory when empty)")
	flags.String("package-path", "", "Import path of the output package (derived from go.mod when empty)")
	flags.Bool("manifest", false, "Also write eventbind_manifest.json")
	flags.StringVar(&configPath, "config", "", "Configuration file (YAML, TOML or JSON)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		v := configpkg.NewViper()
		if err := bindFlags(v, cmd); err != nil {
			return err
		}
		conf, err := configpkg.LoadWith(v, configPath)
		if err != nil {
			return err
		}
		if err := conf.ValidateGenerate(); err != nil {
			return err
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := loggingpkg.NewSlogServiceLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

		artifacts, err := generate(cmd.Context(), fs, conf, logger)
		if err != nil {
			return err
		}
		for _, a := range artifacts {
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", filepath.Join(conf.OutputDir, a.Name))
		}
		return nil
	}
	return cmd
}

// bindFlags lets explicitly set flags override the configuration file and
// environment. Defaults of unset flags do not.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

func generate(ctx context.Context, fs afero.Fs, conf *configpkg.Config, logger loggingpkg.ServiceLogger) ([]emitter.Artifact, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	strategy, err := conf.ParsedStrategy()
	if err != nil {
		return nil, err
	}

	scanner := discovery.NewScanner(fs,
		discovery.WithLogger(logger),
		discovery.WithBuildTags(conf.BuildTags...),
	)
	methods, err := scanner.ScanDirs(ctx, conf.SourceDirs...)
	if err != nil {
		return nil, err
	}

	pkgPath := conf.OutputPackagePath
	if pkgPath == "" {
		pkgPath, err = outputImportPath(scanner, conf.OutputDir)
		if err != nil {
			return nil, err
		}
	}

	result, err := compiler.Compile(methods, compiler.Options{
		Strategy:          strategy,
		OutputPackagePath: pkgPath,
	})
	if err != nil {
		return nil, err
	}

	pkgName := conf.OutputPackage
	if pkgName == "" {
		pkgName = emitter.PackageName(result, pkgPath)
	}
	logger.Info("Generating bindings", loggingpkg.LogFields{
		"strategy": strategy.String(),
		"package":  pkgPath,
		"types":    len(result.Types),
		"methods":  result.MethodCount(),
	})

	declared, err := scanner.PackageDecls(conf.OutputDir, emitter.SourceFile)
	if err != nil {
		return nil, fmt.Errorf("read output package: %w", err)
	}

	return emitter.Emit(result, emitter.Options{
		Package:     pkgName,
		PackagePath: pkgPath,
		Manifest:    conf.Manifest,
		Declared:    declared,
		Logger:      logger,
	}, emitter.NewFsSink(fs, conf.OutputDir))
}

func outputImportPath(scanner *discovery.Scanner, outDir string) (string, error) {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return "", err
	}
	mod, err := scanner.FindModule(abs)
	if err != nil {
		return "", fmt.Errorf("derive output package path: %w", err)
	}
	return mod.ImportPath(abs)
}
