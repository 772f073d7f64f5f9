package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	storeDriver string
	sqlitePath  string
	verbose     bool
	searchText  string
	breed       string
	imageRef    string
	fetchPhoto  bool

	rootCmd = &cobra.Command{
		Use:          "dogctl",
		Short:        "Manage your personal dog list",
		SilenceUsage: true,
	}

	listCmd = &cobra.Command{
		Use:     "list",
		Short:   "Show the dog list, favorites first",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE:    runList,
	}

	addCmd = &cobra.Command{
		Use:   "add NAME",
		Short: "Add a dog; the name must be unique ignoring case",
		Args:  cobra.ExactArgs(1),
		RunE:  runAdd,
	}

	favCmd = &cobra.Command{
		Use:   "fav ID",
		Short: "Toggle the favorite flag of a dog",
		Args:  cobra.ExactArgs(1),
		RunE:  runFav,
	}

	rmCmd = &cobra.Command{
		Use:     "rm ID",
		Short:   "Remove a dog",
		Aliases: []string{"remove"},
		Args:    cobra.ExactArgs(1),
		RunE:    runRemove,
	}

	photoCmd = &cobra.Command{
		Use:   "photo",
		Short: "Fetch a random dog photo URL",
		Args:  cobra.NoArgs,
		RunE:  runPhoto,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&storeDriver, "driver", "", "store driver: memory, sqlite or postgres (default from APP_STORE_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", "", "SQLite database file (default from APP_SQLITE_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	listCmd.Flags().StringVarP(&searchText, "search", "s", "", "only show dogs whose name or breed contains this text")

	addCmd.Flags().StringVarP(&breed, "breed", "b", "", "breed of the dog")
	addCmd.Flags().StringVar(&imageRef, "image", "", "photo URL")
	addCmd.Flags().BoolVarP(&fetchPhoto, "photo", "p", false, "attach a random photo")

	rootCmd.AddCommand(listCmd, addCmd, favCmd, rmCmd, photoCmd)
}
