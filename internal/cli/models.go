package cli

import (
	"context"
	"fmt"
	"strings"

	"reciclo/internal/catalog"
	"reciclo/internal/models"
	"reciclo/internal/transform"

	"github.com/spf13/cobra"
)

func (r *runner) modelsCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "models", Short: "Browse, share and download 3D models"}
	cmd.AddCommand(
		r.modelListCommand("list [search]", "List public models, optionally filtered", cobra.ArbitraryArgs,
			func(ctx context.Context, args []string) ([]transform.ModelCard, bool) {
				return r.app.Catalog.List(ctx, strings.Join(args, " "))
			}),
		r.modelListCommand("liked", "List the models you liked", cobra.NoArgs,
			func(ctx context.Context, _ []string) ([]transform.ModelCard, bool) { return r.app.Catalog.Liked(ctx) }),
		r.modelListCommand("saved", "List the models you saved", cobra.NoArgs,
			func(ctx context.Context, _ []string) ([]transform.ModelCard, bool) { return r.app.Catalog.Saved(ctx) }),
		r.modelListCommand("mine", "List the models you uploaded", cobra.NoArgs,
			func(ctx context.Context, _ []string) ([]transform.ModelCard, bool) { return r.app.Catalog.Mine(ctx) }),
		r.modelShowCommand(),
		r.modelToggleCommand(catalog.ActionLike, "Like or unlike a model"),
		r.modelToggleCommand(catalog.ActionSave, "Save or unsave a model"),
		r.modelDownloadCommand(),
		r.modelVisibilityCommand("hide", "Hide a model from the catalog (curators)", false),
		r.modelVisibilityCommand("restore", "Make a hidden model visible again (curators)", true),
		r.modelUploadCommand(),
		r.modelEditCommand(),
		r.modelDeleteCommand(),
		r.modelCommentsCommand(),
		r.modelCommentCommand(),
	)
	return cmd
}

func (r *runner) modelListCommand(use, short string, args cobra.PositionalArgs, list func(context.Context, []string) ([]transform.ModelCard, bool)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			cards, ok := list(cmd.Context(), args)
			if !ok {
				return ErrFailed
			}
			printCards(cmd.OutOrStdout(), cards)
			return nil
		},
	}
}

// details returns the details view of the model named by the first argument.
func (r *runner) details(args []string) (*catalog.Details, error) {
	id, err := parseID(args[0])
	if err != nil {
		return nil, err
	}
	return r.app.Catalog.Details(id), nil
}

func (r *runner) modelShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a model with its images and files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := r.details(args)
			if err != nil {
				return err
			}
			if !d.Fetch(cmd.Context()) {
				r.app.Notifier.Error(d.Err())
				return ErrFailed
			}
			m, _ := d.Model()
			printModel(cmd.OutOrStdout(), m)
			return nil
		},
	}
}

func (r *runner) modelToggleCommand(action catalog.Action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := r.details(args)
			if err != nil {
				return err
			}
			if !d.HandleAction(cmd.Context(), action) {
				return ErrFailed
			}
			m, _ := d.Model()
			w := cmd.OutOrStdout()
			switch action {
			case catalog.ActionLike:
				fmt.Fprintf(w, "liked: %s (%d likes)\n", yesNo(m.IsLiked), m.Likes)
			case catalog.ActionSave:
				fmt.Fprintf(w, "saved: %s\n", yesNo(m.IsSaved))
			}
			return nil
		},
	}
}

func (r *runner) modelDownloadCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "download ID",
		Short: "Download the files of a model as a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := r.details(args)
			if err != nil {
				return err
			}
			sink := r.app.Sink
			if dir != "" {
				sink = catalog.NewDirSink(dir)
			}
			location, ok := d.Download(cmd.Context(), sink)
			if !ok {
				return ErrFailed
			}
			fmt.Fprintln(cmd.OutOrStdout(), location)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "save into this directory instead of the configured destination")
	return cmd
}

func (r *runner) modelVisibilityCommand(use, short string, visible bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := r.details(args)
			if err != nil {
				return err
			}
			return result(d.SetVisibility(cmd.Context(), visible))
		},
	}
}

func (r *runner) modelUploadCommand() *cobra.Command {
	var m models.NewModel
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Share a new model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			created, ok := r.app.Catalog.Upload(cmd.Context(), m)
			if !ok {
				return ErrFailed
			}
			fmt.Fprintln(cmd.OutOrStdout(), created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&m.Name, "name", "", "model name")
	cmd.Flags().StringVar(&m.Description, "description", "", "model description")
	cmd.Flags().StringVar(&m.FilePath, "file", "", "path of the model file")
	cmd.Flags().StringVar(&m.ImagePath, "image", "", "path of a preview image")
	return cmd
}

func (r *runner) modelEditCommand() *cobra.Command {
	var edit models.ModelEdit
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit one of your models",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return result(r.app.Catalog.Edit(cmd.Context(), id, edit))
		},
	}
	cmd.Flags().StringVar(&edit.Name, "name", "", "new name")
	cmd.Flags().StringVar(&edit.Description, "description", "", "new description")
	cmd.Flags().Int64SliceVar(&edit.DeleteImageIDs, "delete-image", nil, "id of an image to remove")
	cmd.Flags().Int64SliceVar(&edit.DeleteFileIDs, "delete-file", nil, "id of a file to remove")
	cmd.Flags().StringSliceVar(&edit.AddImagePaths, "add-image", nil, "path of an image to add")
	cmd.Flags().StringSliceVar(&edit.AddFilePaths, "add-file", nil, "path of a file to add")
	return cmd
}

func (r *runner) modelDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one of your models",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return result(r.app.Catalog.Delete(cmd.Context(), id))
		},
	}
}

func (r *runner) modelCommentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "comments ID",
		Short: "Show the comments of a model, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			comments, ok := r.app.Catalog.Comments(cmd.Context(), id)
			if !ok {
				return ErrFailed
			}
			printComments(cmd.OutOrStdout(), comments)
			return nil
		},
	}
}

func (r *runner) modelCommentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "comment ID TEXT...",
		Short: "Comment on a model",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, ok := r.app.Catalog.AddComment(cmd.Context(), id, strings.Join(args[1:], " "))
			return result(ok)
		},
	}
}
