package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/crewmatch/internal/search"
)

var searchTasksCmd = &cobra.Command{
	Use:   "search-tasks [query]",
	Short: "Find tasks similar to a free-text description",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearchTasks,
}

var searchUsersCmd = &cobra.Command{
	Use:   "search-users [query]",
	Short: "Find workers whose profile matches a free-text description",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearchUsers,
}

var bestWorkersCmd = &cobra.Command{
	Use:   "best-workers",
	Short: "Rank workers for a task described by its title and details",
	Long: `Renders the task the same way stored tasks are rendered and searches the
worker collection with it, so a task and the workers suited to it land close
together.`,
	RunE: runBestWorkers,
}

func init() {
	for _, c := range []*cobra.Command{searchTasksCmd, searchUsersCmd, bestWorkersCmd} {
		c.Flags().IntP("k", "k", search.DefaultK, "number of results")
		c.Flags().Bool("json", false, "output results as JSON")
	}

	searchTasksCmd.Flags().Float64("min-distance", 0, "drop results closer than this")
	searchTasksCmd.Flags().Float64("max-distance", 0, "drop results further than this")

	searchUsersCmd.Flags().Float64("min-similarity", 0, "minimum similarity score (0-100)")
	searchUsersCmd.Flags().String("role", "", "only workers with this role")
	searchUsersCmd.Flags().Int("min-experience", 0, "minimum years of experience")
	searchUsersCmd.Flags().String("trade", "", "only workers in a matching trade category")

	bestWorkersCmd.Flags().String("title", "", "task title (required)")
	bestWorkersCmd.Flags().String("description", "", "task description")
	bestWorkersCmd.Flags().StringSlice("skills", nil, "skill requirements of the task")
	bestWorkersCmd.Flags().String("trade", "", "trade category of the task")
	bestWorkersCmd.Flags().Float64("min-similarity", 0, "minimum similarity score (0-100)")
	bestWorkersCmd.Flags().StringSlice("required-skill", nil, "worker must list at least one of these skills")
	bestWorkersCmd.Flags().Int("min-experience", 0, "preferred minimum years of experience")
	_ = bestWorkersCmd.MarkFlagRequired("title")

	rootCmd.AddCommand(searchTasksCmd, searchUsersCmd, bestWorkersCmd)
}

func runSearchTasks(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	k, _ := cmd.Flags().GetInt("k")
	req := search.TaskSearch{
		Query:       args[0],
		K:           k,
		MinDistance: floatFlag(cmd, "min-distance"),
		MaxDistance: floatFlag(cmd, "max-distance"),
	}
	matches, err := a.engine.SearchSimilarTasks(a.ctx(cmd.Context()), req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if asJSON(cmd) {
		return printJSON(matches)
	}
	if len(matches) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d tasks:\n\n", len(matches))
	for i, m := range matches {
		fmt.Printf("  %d. [%.1f] #%d %s\n", i+1, m.SimilarityScore, m.TaskID, m.Title)
		fmt.Printf("     %s | %s | %s\n", orDash(m.TradeCategory), m.Priority, m.Status)
		fmt.Printf("     %s\n\n", truncate(m.MatchedTextSnippet, 120))
	}
	return nil
}

func runSearchUsers(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	k, _ := cmd.Flags().GetInt("k")
	role, _ := cmd.Flags().GetString("role")
	trade, _ := cmd.Flags().GetString("trade")
	req := search.UserSearch{
		Query:               args[0],
		K:                   k,
		MinSimilarityScore:  floatFlag(cmd, "min-similarity"),
		RoleFilter:          role,
		MinExperienceYears:  intFlag(cmd, "min-experience"),
		TradeCategoryFilter: trade,
	}
	matches, err := a.engine.SearchSimilarUsers(a.ctx(cmd.Context()), req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return printWorkers(cmd, matches)
}

func runBestWorkers(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	k, _ := cmd.Flags().GetInt("k")
	title, _ := cmd.Flags().GetString("title")
	desc, _ := cmd.Flags().GetString("description")
	skills, _ := cmd.Flags().GetStringSlice("skills")
	trade, _ := cmd.Flags().GetString("trade")
	required, _ := cmd.Flags().GetStringSlice("required-skill")
	req := search.WorkerSearch{
		Title:                    title,
		Description:              desc,
		SkillRequirements:        skills,
		TradeCategory:            trade,
		K:                        k,
		MinSimilarityScore:       floatFlag(cmd, "min-similarity"),
		RequiredSkills:           required,
		PreferredExperienceYears: intFlag(cmd, "min-experience"),
	}
	matches, err := a.engine.FindBestWorkersForTask(a.ctx(cmd.Context()), req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return printWorkers(cmd, matches)
}

func printWorkers(cmd *cobra.Command, matches []search.WorkerMatch) error {
	if asJSON(cmd) {
		return printJSON(matches)
	}
	if len(matches) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d workers:\n\n", len(matches))
	for i, m := range matches {
		fmt.Printf("  %d. [%.1f] #%d %s (%s, %d yrs)\n", i+1, m.SimilarityScore, m.UserID, m.Name, orDash(m.Role), m.ExperienceYears)
		if len(m.RelevantSkills) > 0 {
			fmt.Printf("     Relevant: %s\n", strings.Join(m.RelevantSkills, ", "))
		}
		fmt.Printf("     %s\n\n", truncate(m.ProfileSnippet, 120))
	}
	return nil
}

// floatFlag returns nil unless the flag was given, so an explicit zero
// still filters.
func floatFlag(cmd *cobra.Command, name string) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetFloat64(name)
	return &v
}

func intFlag(cmd *cobra.Command, name string) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetInt(name)
	return &v
}

func asJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
