package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mmcdole/tapedeck/internal/domain"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show the playlist hierarchy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, nil, func(s *session) error {
			out := cmd.OutOrStdout()
			renderTree(out, s.h, newStyles(s.color(out)), width(out))
			return nil
		})
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls [query]",
	Short: "List playlists, fuzzily matching query",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		return withSession(cmd, nil, func(s *session) error {
			out := cmd.OutOrStdout()
			renderList(out, s.h, query, newStyles(s.color(out)))
			return nil
		})
	},
}

var createCmd = &cobra.Command{
	Use:   "create NAME [ids...]",
	Short: "Create a playlist holding the given audio items",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args[1:])
		if err != nil {
			return err
		}
		return withSession(cmd, ids, func(s *session) error {
			refs, err := s.resolve(cmd, ids)
			if err != nil {
				return err
			}
			p, err := s.h.CreatePlaylist(args[0], refs...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created playlist %q (id %d)\n", p.Name(), p.ID())
			return nil
		})
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir NAME",
	Short: "Create a playlist directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, nil, func(s *session) error {
			p, err := s.h.CreatePlaylistDirectory(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created directory %q (id %d)\n", p.Name(), p.ID())
			return nil
		})
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv NAME DIR",
	Short: "Move a playlist out of its parents into DIR",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, nil, func(s *session) error {
			return s.h.MovePlaylist(args[0], args[1])
		})
	},
}

var linkCmd = &cobra.Command{
	Use:   "link NAME DIR",
	Short: "Add a playlist to DIR, keeping its other parents",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, nil, func(s *session) error {
			changed, err := s.h.AddPlaylistToDirectory(args[0], args[1])
			if err != nil {
				return err
			}
			reportChange(cmd, changed)
			return nil
		})
	},
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink NAME DIR",
	Short: "Remove a playlist from DIR without deleting it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, nil, func(s *session) error {
			reportChange(cmd, s.h.RemovePlaylistFromDirectory(args[0], args[1]))
			return nil
		})
	},
}

var addCmd = &cobra.Command{
	Use:   "add NAME ids...",
	Short: "Append audio items to a playlist",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args[1:])
		if err != nil {
			return err
		}
		return withSession(cmd, ids, func(s *session) error {
			refs, err := s.resolve(cmd, ids)
			if err != nil {
				return err
			}
			reportChange(cmd, s.h.AddAudioItemsToPlaylist(refs, args[0]))
			return nil
		})
	},
}

var rmItemsCmd = &cobra.Command{
	Use:   "rm-items NAME ids...",
	Short: "Remove audio items from a playlist",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args[1:])
		if err != nil {
			return err
		}
		return withSession(cmd, nil, func(s *session) error {
			refs := make([]domain.AudioItemRef, len(ids))
			for i, id := range ids {
				refs[i] = domain.AudioItemRef(id)
			}
			reportChange(cmd, s.h.RemoveAudioItemsFromPlaylist(refs, args[0]))
			return nil
		})
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename OLD NEW",
	Short: "Rename a playlist",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, nil, func(s *session) error {
			return s.h.RenamePlaylist(args[0], args[1])
		})
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Delete a playlist; its children are kept",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, nil, func(s *session) error {
			if !s.h.RemovePlaylist(args[0]) {
				return fmt.Errorf("remove %q: %w", args[0], domain.ErrNotFound)
			}
			return nil
		})
	},
}

var itemsCmd = &cobra.Command{
	Use:   "items NAME",
	Short: "Print the audio items of a playlist and everything below it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, nil, func(s *session) error {
			items, ok := s.h.AudioItemsRecursiveByName(args[0])
			if !ok {
				return fmt.Errorf("items %q: %w", args[0], domain.ErrNotFound)
			}
			for _, ref := range items {
				fmt.Fprintln(cmd.OutOrStdout(), int(ref))
			}
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tapedeck %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(
		treeCmd, lsCmd, createCmd, mkdirCmd, mvCmd, linkCmd, unlinkCmd,
		addCmd, rmItemsCmd, renameCmd, rmCmd, itemsCmd, versionCmd,
	)
}

// resolve looks ids up in the session catalog.
func (s *session) resolve(cmd *cobra.Command, ids []int) ([]domain.AudioItemRef, error) {
	refs := make([]domain.AudioItemRef, 0, len(ids))
	for _, id := range ids {
		ref, err := s.catalog.Resolve(cmd.Context(), id)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, len(args))
	for i, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid audio item id %q", arg)
		}
		ids[i] = id
	}
	return ids, nil
}

func reportChange(cmd *cobra.Command, changed bool) {
	if !changed {
		fmt.Fprintln(cmd.ErrOrStderr(), "nothing changed")
	}
}
