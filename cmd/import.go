package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/crewmatch/internal/records"
)

// seedFile is the layout accepted by import.
type seedFile struct {
	Tasks []records.Task `yaml:"tasks"`
	Users []records.User `yaml:"users"`
}

var importCmd = &cobra.Command{
	Use:   "import [file.yml]",
	Short: "Create tasks and workers from a YAML file",
	Long: `Reads a YAML document with "tasks" and "users" lists and creates every
record through the normal write path, so each one is synchronized into the
vector collections as it is stored. Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().Bool("keep-going", false, "continue after a record fails validation")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	keepGoing, _ := cmd.Flags().GetBool("keep-going")

	seed, err := readSeed(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := a.ctx(cmd.Context())

	var created, failed int
	fail := func(kind string, i int, err error) error {
		failed++
		if !keepGoing {
			return fmt.Errorf("%s #%d: %w", kind, i+1, err)
		}
		a.log.Warn("skipping record", "kind", kind, "index", i+1, "error", err)
		return nil
	}

	for i := range seed.Tasks {
		t := seed.Tasks[i]
		t.ID = 0
		if err := a.records.CreateTask(ctx, &t); err != nil {
			if err := fail("task", i, err); err != nil {
				return err
			}
			continue
		}
		created++
	}
	for i := range seed.Users {
		u := seed.Users[i]
		u.ID = 0
		if err := a.records.CreateUser(ctx, &u); err != nil {
			if err := fail("user", i, err); err != nil {
				return err
			}
			continue
		}
		created++
	}

	fmt.Printf("Imported %d records", created)
	if failed > 0 {
		fmt.Printf(" (%d skipped)", failed)
	}
	fmt.Println()
	return nil
}

func readSeed(path string) (*seedFile, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(seed.Tasks) == 0 && len(seed.Users) == 0 {
		return nil, fmt.Errorf("%s contains no tasks or users", path)
	}
	return &seed, nil
}
