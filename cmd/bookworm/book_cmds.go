package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bookworm/internal/feed"
	"bookworm/internal/media"
	"bookworm/pkg/domain"
)

func newFeedCmd(configPath *string) *cobra.Command {
	var pages int
	var all bool
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Browse the recommendation feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			if err := a.engine.Load(ctx); err != nil {
				return err
			}
			fetched := 1
			for a.engine.HasMore() && (all || fetched < pages) {
				if err := a.engine.LoadMore(ctx); err != nil {
					if errors.Is(err, feed.ErrNoMorePages) {
						break
					}
					return err
				}
				fetched++
			}
			snap := a.engine.Snapshot()
			if len(snap.Items) == 0 {
				fmt.Println("no recommendations yet")
				return nil
			}
			for _, b := range snap.Items {
				printBook(b)
			}
			if snap.HasMore {
				fmt.Printf("more available, showing %d page(s), rerun with --all\n", snap.Page)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to fetch")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")
	return cmd
}

func newMineCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List your own recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			books, err := a.client.ListMyBooks(ctx)
			if err != nil {
				return err
			}
			if len(books) == 0 {
				fmt.Println("no recommendations yet")
				return nil
			}
			fmt.Printf("%d book(s)\n", len(books))
			for _, b := range books {
				printBook(b)
			}
			return nil
		},
	}
}

func newPostCmd(configPath *string) *cobra.Command {
	var title, caption, image string
	var rating int
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Share a book recommendation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" || caption == "" || image == "" || rating == 0 {
				return errors.New("title, caption, rating, and image are all required")
			}
			if rating < 1 || rating > 5 {
				return errors.New("rating must be between 1 and 5")
			}
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			dataURL, err := media.DataURL(image)
			if err != nil {
				return err
			}
			book, err := a.client.CreateBook(ctx, title, caption, rating, dataURL)
			if err != nil {
				return err
			}
			fmt.Printf("posted %q (%s)\n", book.Title, book.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "book title")
	cmd.Flags().StringVar(&caption, "caption", "", "your review or thought")
	cmd.Flags().IntVar(&rating, "rating", 0, "rating from 1 to 5")
	cmd.Flags().StringVar(&image, "image", "", "path to a cover image")
	return cmd
}

func newRmCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <book-id>",
		Short: "Delete one of your recommendations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			id := args[0]
			// Pessimistic: the local list only changes after the server confirms.
			if err := a.client.DeleteBook(ctx, id); err != nil {
				return err
			}
			a.engine.RemoveLocally(id)
			fmt.Printf("deleted %s\n", id)
			return nil
		},
	}
}

func printBook(b domain.Book) {
	rating := min(max(b.Ratings, 0), 5)
	stars := strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
	fmt.Printf("%s  %s  by @%s\n", b.ID, stars, b.Author.Username)
	fmt.Printf("  %s\n", b.Title)
	if b.Caption != "" {
		fmt.Printf("  %s\n", b.Caption)
	}
	if !b.CreatedAt.IsZero() {
		fmt.Printf("  shared %s\n", b.CreatedAt.Format("Jan 2, 2006"))
	}
}
