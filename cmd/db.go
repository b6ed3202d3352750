package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"

	"github.com/applounge/lounge/internal/utils"
	"github.com/applounge/lounge/pkg/storage"
	"github.com/spf13/cobra"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the lounge database",
}

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPathRaw, _ := dbCmd.PersistentFlags().GetString("dbpath")
		dbPath, err := utils.GetAbsDBPath(dbPathRaw)
		if err != nil {
			return err
		}

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("database file not found: %s", dbPath)
		}

		// Check if sqlite3 is in PATH
		sqlitePath, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("sqlite3 command not found in your PATH. Please install it to use the db shell")
		}

		// Print schema first
		fmt.Println("--> Database schema:")
		schemaCmd := exec.Command(sqlitePath, dbPath, ".schema")
		schemaCmd.Stdout = os.Stdout
		schemaCmd.Stderr = os.Stderr
		if err := schemaCmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: couldn't retrieve schema: %v\n", err)
		}
		fmt.Println("\n--> Starting interactive shell... (Ctrl+D to exit)")

		c := exec.Command(sqlitePath, dbPath)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr

		return c.Run()
	},
}

// ignoreCmd represents the ignore command
var ignoreCmd = &cobra.Command{
	Use:   "ignore <package>",
	Short: "Leave a package out of future home feed snapshots",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setIgnoreStatus(cmd.Context(), args[0], true)
	},
}

// unignoreCmd represents the unignore command
var unignoreCmd = &cobra.Command{
	Use:   "unignore <package>",
	Short: "Track a previously ignored package again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setIgnoreStatus(cmd.Context(), args[0], false)
	},
}

var ignoredCmd = &cobra.Command{
	Use:   "ignored",
	Short: "List ignored packages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPathRaw, _ := dbCmd.PersistentFlags().GetString("dbpath")
		db, err := openExistingDB(dbPathRaw)
		if err != nil {
			return err
		}
		defer db.Close()

		ignored, err := db.IgnoredPackages(cmd.Context())
		if err != nil {
			return err
		}
		pkgs := make([]string, 0, len(ignored))
		for pkg := range ignored {
			pkgs = append(pkgs, pkg)
		}
		sort.Strings(pkgs)
		for _, pkg := range pkgs {
			fmt.Println(pkg)
		}
		return nil
	},
}

func setIgnoreStatus(ctx context.Context, packageName string, ignored bool) error {
	if !utils.IsPackageName(packageName) {
		return fmt.Errorf("not a package name: %q", packageName)
	}
	dbPathRaw, _ := dbCmd.PersistentFlags().GetString("dbpath")
	dbPath, err := utils.GetAbsDBPath(dbPathRaw)
	if err != nil {
		return err
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	action := "Ignored"
	if ignored {
		err = db.IgnorePackage(ctx, packageName)
	} else {
		err = db.UnignorePackage(ctx, packageName)
		action = "Unignored"
	}
	if err != nil {
		return err
	}
	fmt.Printf("✅ Successfully %s %s\n", action, packageName)
	return nil
}

// openExistingDB opens the database without creating it.
func openExistingDB(dbPathRaw string) (*storage.DB, error) {
	dbPath, err := utils.GetAbsDBPath(dbPathRaw)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database not found: %s", dbPath)
	}
	return storage.Open(dbPath)
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(shellCmd)
	dbCmd.AddCommand(ignoreCmd)
	dbCmd.AddCommand(unignoreCmd)
	dbCmd.AddCommand(ignoredCmd)
	dbCmd.PersistentFlags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/lounge/lounge.sqlite)")
}
