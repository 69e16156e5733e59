package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sdkproj/internal/cli/config"
	"github.com/leapstack-labs/sdkproj/internal/cli/output"
	"github.com/leapstack-labs/sdkproj/internal/descriptor"
	"github.com/leapstack-labs/sdkproj/internal/scaffold"
)

const configHeader = `# sdkproj configuration.
# Every key can be overridden with SDKPROJ_<KEY> (use __ between levels,
# e.g. SDKPROJ_REGISTRY__TIMEOUT_MS) or the matching command-line flag.
`

// InitOutput is the JSON document printed by init.
type InitOutput struct {
	Config  string   `json:"config"`
	Created []string `json:"created"`
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var (
		force      bool
		noScaffold bool
	)

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create sdkproj.yaml and the companion import files",
		Long: `Initialize a project directory for sdkproj.

This creates:
  - sdkproj.yaml with the default settings
  - Directory.Build.props and Directory.Build.targets
  - <Project>.UnityShared/.UnityEditor .props and .targets

Existing companion files are never overwritten. The project name is the
directory name.`,
		Example: `  # Initialize the current directory
  sdkproj init

  # Initialize another directory, replacing its config
  sdkproj init ../MyGame --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			cc := NewCommandContextWithoutStore(cmd)
			return runInit(cc.Renderer, dir, force, !noScaffold)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing sdkproj.yaml")
	cmd.Flags().BoolVar(&noScaffold, "no-scaffold", false, "Only write the configuration file")

	return cmd
}

func runInit(r *output.Renderer, dir string, force, withScaffold bool) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(abs, config.ConfigFileNames[0])
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileNames[0])
	}

	data, err := marshalDefaultConfig()
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	doc := InitOutput{Config: configPath, Created: []string{}}
	if withScaffold {
		defaults := config.Default()
		spec, err := descriptor.NewImportSpec(filepath.Base(abs), defaults.Imports.Kinds)
		if err != nil {
			return err
		}
		created, err := scaffold.EnsureCompanions(abs, spec, defaults.Scaffold.DirectoryBuild)
		if err != nil {
			return err
		}
		doc.Created = append(doc.Created, created...)
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(doc)
	}

	r.Header(1, "Initialized "+filepath.Base(abs))
	r.StatusLine(config.ConfigFileNames[0], output.StatusSuccess, "written")
	for _, p := range doc.Created {
		r.StatusLine(displayPath(abs, p), output.StatusSuccess, "created")
	}
	r.Println("")
	r.Muted("Next: run `sdkproj convert` after the IDE regenerates its project files")
	return nil
}

// marshalDefaultConfig renders the default configuration as YAML.
func marshalDefaultConfig() ([]byte, error) {
	cfg := config.Default()

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}
