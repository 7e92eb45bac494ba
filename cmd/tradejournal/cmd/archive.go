package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	s3blob "github.com/rustyeddy/tradejournal/internal/blob/s3"
)

// dryRunWriter reports what would be uploaded.
type dryRunWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func (w *dryRunWriter) Put(_ context.Context, key string, data io.Reader, _ string) error {
	n, err := io.Copy(io.Discard, data)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "  would upload %s (%d bytes)\n", key, n)
	return nil
}

func newArchiveCmd(a *app) *cobra.Command {
	var (
		before string
		dryRun bool
	)

	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive closed positions to S3 as JSONL",
		Long: `Upload closed positions and their exits to S3-compatible storage,
one JSONL object per kind per close month:

  <prefix>/positions/2024-03.jsonl
  <prefix>/exits/2024-03.jsonl

Only positions closed before --before are archived (default: the first day
of the current month). Archived positions stay in the journal; re-running
overwrites the month objects.

Examples:
  tradejournal archive --dry-run
  tradejournal archive --before 2024-07-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cutoff, err := archiveCutoff(before, time.Now())
			if err != nil {
				return err
			}

			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			var writer s3blob.BlobWriter = &dryRunWriter{out: cmd.OutOrStdout()}
			if !dryRun {
				if s.cfg.S3.Bucket == "" {
					return fmt.Errorf("s3.bucket is not configured")
				}
				c, err := s3blob.New(ctx, s3blob.ClientConfig{
					Endpoint:       s.cfg.S3.Endpoint,
					Region:         s.cfg.S3.Region,
					Bucket:         s.cfg.S3.Bucket,
					AccessKey:      s.cfg.S3.AccessKey,
					SecretKey:      s.cfg.S3.SecretKey,
					UseSSL:         s.cfg.S3.UseSSL,
					ForcePathStyle: s.cfg.S3.ForcePathStyle,
				})
				if err != nil {
					return err
				}
				if err := c.Health(ctx); err != nil {
					return err
				}
				writer = s3blob.NewWriter(c)
			}

			res, err := s3blob.NewArchiver(writer, s.cfg.S3.Prefix, s.log).Archive(ctx, s.ledger.ListClosed(), cutoff)
			if err != nil {
				return err
			}

			verb := "Archived"
			if dryRun {
				verb = "Would archive"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %d positions, %d exits in %d objects (closed before %s)\n",
				verb, res.Positions, res.Exits, len(res.Keys), cutoff.Format(time.DateOnly))
			return nil
		},
	}

	archiveCmd.Flags().StringVar(&before, "before", "", "archive positions closed before this date YYYY-MM-DD")
	archiveCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be uploaded without contacting S3")
	return archiveCmd
}

// archiveCutoff defaults to the first day of now's month so the current,
// still-changing month is never archived.
func archiveCutoff(before string, now time.Time) (time.Time, error) {
	if before == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), nil
	}
	start, _, err := dayBounds(time.Local, before)
	if err != nil {
		return time.Time{}, fmt.Errorf("before: %w", err)
	}
	return start, nil
}
