package client

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mkamenev/memobox/models"
)

func printUsage() {
	fmt.Fprintln(os.Stderr, `memobox-client <command> [flags]

Commands:
  agent                      run the background sync agent (default)
  register                   create an account   (-login, -password)
  login                      log in              (-login, -password)
  add-memo                   create a memo       (-title, -content, -tags, -category)
  edit-memo                  update a memo       (-id, -title, -content, -tags, -category)
  delete-memo                delete a memo       (-id)
  list-memos                 list local memos
  add-category               create a category   (-name, -color, -position)
  list-categories            list local categories
  sync                       run one sync round now
  status                     show sync diagnostics
  resolve                    resolve a conflict  (-conflict, -strategy local|server)
  auto-resolve               let the server merge what it can`)
}

func (a *App) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	login := fs.String("login", "", "account login")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user := models.User{Login: *login, Password: *password}
	if err := a.services.AuthService.Register(ctx, user); err != nil {
		return err
	}

	fmt.Printf("registered and logged in as %s\n", *login)
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	login := fs.String("login", "", "account login")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user := models.User{Login: *login, Password: *password}
	if err := a.services.AuthService.Login(ctx, user); err != nil {
		return err
	}

	fmt.Printf("logged in as %s\n", *login)
	return nil
}

func (a *App) addMemo(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-memo", flag.ContinueOnError)
	title := fs.String("title", "", "memo title")
	content := fs.String("content", "", "memo body")
	tags := fs.String("tags", "", "comma-separated tags")
	category := fs.String("category", "", "category id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	memo := models.Memo{Title: *title, Content: *content, Tags: splitTags(*tags)}
	if *category != "" {
		memo.CategoryID = category
	}

	created, err := a.services.RecordsService.CreateMemo(ctx, memo)
	if err != nil {
		return err
	}

	fmt.Printf("created memo %s (queued for sync)\n", created.ID)
	return nil
}

func (a *App) editMemo(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit-memo", flag.ContinueOnError)
	id := fs.String("id", "", "memo id")
	title := fs.String("title", "", "new title (unchanged when empty)")
	content := fs.String("content", "", "new body (unchanged when empty)")
	tags := fs.String("tags", "", "new comma-separated tags (unchanged when empty)")
	category := fs.String("category", "", "new category id (unchanged when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	memo, _, err := a.services.RecordsService.GetMemo(ctx, *id)
	if err != nil {
		return err
	}

	if *title != "" {
		memo.Title = *title
	}
	if *content != "" {
		memo.Content = *content
	}
	if *tags != "" {
		memo.Tags = splitTags(*tags)
	}
	if *category != "" {
		memo.CategoryID = category
	}

	if _, err = a.services.RecordsService.UpdateMemo(ctx, memo); err != nil {
		return err
	}

	fmt.Printf("updated memo %s (queued for sync)\n", memo.ID)
	return nil
}

func (a *App) deleteMemo(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete-memo", flag.ContinueOnError)
	id := fs.String("id", "", "memo id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.services.RecordsService.DeleteMemo(ctx, *id); err != nil {
		return err
	}

	fmt.Printf("deleted memo %s (queued for sync)\n", *id)
	return nil
}

func (a *App) listMemos(ctx context.Context) error {
	memos, err := a.services.RecordsService.ListMemos(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tTAGS\tVERSION")
	for _, memo := range memos {
		fmt.Fprintf(w, "%s\t%s\t%v\t%d\n", memo.ID, memo.Title, memo.Tags, memo.SyncVersion)
	}
	return w.Flush()
}

func (a *App) addCategory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-category", flag.ContinueOnError)
	name := fs.String("name", "", "category name")
	color := fs.String("color", "", "hex color")
	position := fs.Int("position", 0, "sort position")
	if err := fs.Parse(args); err != nil {
		return err
	}

	created, err := a.services.RecordsService.CreateCategory(ctx, models.Category{
		Name:     *name,
		Color:    *color,
		Position: *position,
	})
	if err != nil {
		return err
	}

	fmt.Printf("created category %s (queued for sync)\n", created.ID)
	return nil
}

func (a *App) listCategories(ctx context.Context) error {
	categories, err := a.services.RecordsService.ListCategories(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOLOR\tPOSITION")
	for _, category := range categories {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", category.ID, category.Name, category.Color, category.Position)
	}
	return w.Flush()
}

func (a *App) syncNow(ctx context.Context) error {
	if err := a.restoreSession(ctx); err != nil {
		return err
	}

	report, err := a.services.SyncService.SyncOnce(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("pushed %d, applied %d, conflicted %d, dropped %d, open conflicts %d\n",
		report.Pushed, report.Applied, report.Conflicted, report.Dropped, report.OpenConflicts)
	return nil
}

func (a *App) status(ctx context.Context) error {
	if err := a.restoreSession(ctx); err != nil {
		return err
	}

	status, queueDepth, err := a.services.SyncService.Status(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ENTITY\tID\tVERSION\tLAST SYNC\tCONFLICT")
	for _, entity := range status.Entities {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%v\n",
			entity.Entity, entity.ID, entity.SyncVersion, entity.LastSyncAt.Format("2006-01-02 15:04:05"), entity.HasConflicts)
	}
	if err = w.Flush(); err != nil {
		return err
	}

	fmt.Printf("open conflicts: %d, local queue depth: %d\n", status.PendingChanges, queueDepth)
	return nil
}

func (a *App) resolve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	conflictID := fs.String("conflict", "", "conflict id, e.g. memo:<uuid>")
	strategy := fs.String("strategy", "", "local or server")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolution := models.Resolution(*strategy)
	if !resolution.Valid() || resolution == models.ResolutionMerge {
		return fmt.Errorf("strategy must be local or server, got %q", *strategy)
	}

	if err := a.restoreSession(ctx); err != nil {
		return err
	}

	resolved, err := a.services.SyncService.Resolve(ctx, []models.ConflictResolution{
		{ConflictID: *conflictID, Resolution: resolution},
	})
	if err != nil {
		return err
	}

	fmt.Printf("resolved %d conflict(s)\n", resolved.Resolved)
	return nil
}

func (a *App) autoResolve(ctx context.Context) error {
	if err := a.restoreSession(ctx); err != nil {
		return err
	}

	resolved, err := a.services.SyncService.AutoResolve(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("auto-resolved %d conflict(s)\n", resolved.Resolved)
	return nil
}
