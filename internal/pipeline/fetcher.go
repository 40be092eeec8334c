package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/envoice/envoicego/internal/services/magaya"
)

// MagayaAPI is the slice of the Magaya client the pipeline uses. Tests
// substitute an in-memory implementation.
type MagayaAPI interface {
	StartSession(ctx context.Context, user, pass string) (string, error)
	FirstTransByDate(ctx context.Context, q magaya.TransQuery) (*magaya.FirstPage, error)
	NextTransByDate(ctx context.Context, cookie string) (*magaya.NextPage, error)
	GetTransaction(ctx context.Context, accessKey, docType, flags, number string) (string, error)
	SetCustomFieldValue(ctx context.Context, accessKey, docType, number, internalName, value string) (string, error)
	SetAttachment(ctx context.Context, accessKey, docType, number string, data []byte, name, extension string) (string, error)
}

// Fetcher lists candidate transactions over a kind's lookback horizon.
// Now is injectable so tests can pin the window boundaries.
type Fetcher struct {
	Now func() time.Time
}

// NewFetcher creates a fetcher on the real clock
func NewFetcher() *Fetcher {
	return &Fetcher{Now: time.Now}
}

// Fetch walks the lookback horizon of the descriptor in single-day windows,
// oldest first, and drains the pagination cursor of each window. Entries are
// deduplicated by transaction number; the first sighting wins. A window that
// fails to open or advance is logged and skipped, so one bad day never
// abandons the rest of the horizon.
func (f *Fetcher) Fetch(ctx context.Context, mag MagayaAPI, accessKey string, desc KindDescriptor) ([]magaya.TransListItem, error) {
	now := f.Now()

	seen := make(map[string]struct{})
	var items []magaya.TransListItem

	for i := desc.LookbackDays; i > 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := now.AddDate(0, 0, -i).Format("2006-01-02")
		end := now.AddDate(0, 0, -(i - 1)).Format("2006-01-02")

		first, err := mag.FirstTransByDate(ctx, magaya.TransQuery{
			AccessKey: accessKey,
			Type:      desc.MagayaType,
			StartDate: start,
			EndDate:   end,
			Flags:     desc.ListFlags,
			Function:  desc.ListFunction,
		})
		if err != nil {
			log.Printf("⚠️ [%s] Window %s open failed: %v", desc.Kind, start, err)
			continue
		}
		if first.Result != "no_error" {
			log.Printf("⚠️ [%s] Window %s returned %s, skipping", desc.Kind, start, first.Result)
			continue
		}

		cookie := first.Cookie
		more := first.MoreResults

		for more != "0" && cookie != "" {
			page, err := mag.NextTransByDate(ctx, cookie)
			if err != nil {
				log.Printf("⚠️ [%s] Window %s page failed: %v", desc.Kind, start, err)
				break
			}

			cookie = page.Cookie
			more = page.MoreResults

			if page.TransListXML == "" {
				break
			}

			entries, err := magaya.ParseTransList(page.TransListXML)
			if err != nil {
				log.Printf("⚠️ [%s] Window %s list unreadable: %v", desc.Kind, start, err)
				break
			}

			for _, entry := range entries {
				if entry.Number == "" {
					continue
				}
				if _, dup := seen[entry.Number]; dup {
					continue
				}
				seen[entry.Number] = struct{}{}
				items = append(items, entry)
			}
		}
	}

	return items, nil
}
