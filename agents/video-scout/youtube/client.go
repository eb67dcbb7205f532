package youtube

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"video-scout/internal/models"
	"video-scout/shared/config"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// ErrService wraps every failure reported by the YouTube Data API.
var ErrService = errors.New("youtube service error")

// maxPageSize is the largest page search.list accepts.
const maxPageSize = 50

const noDescription = "No Description"

type Client struct {
	service *youtube.Service
	config  *config.YouTubeConfig
	now     func() time.Time
}

// NewClient creates a search client authenticated with the configured API key.
// Extra options are appended after the key, so callers can point the client
// at another endpoint.
func NewClient(ctx context.Context, cfg *config.YouTubeConfig, opts ...option.ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("youtube config cannot be nil")
	}

	opts = append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &Client{
		service: service,
		config:  cfg,
		now:     time.Now,
	}, nil
}

// Search returns up to maxResults videos matching query that were published
// within the last daysBack days, in the order the API ranked them.
func (c *Client) Search(ctx context.Context, query string, daysBack int, maxResults int64) ([]*models.Video, error) {
	if maxResults <= 0 {
		return []*models.Video{}, nil
	}

	cutoff := c.now().UTC().AddDate(0, 0, -daysBack)
	publishedAfter := cutoff.Format(time.RFC3339)

	log.Printf("Searching YouTube for %q (published after %s, max %d)", query, publishedAfter, maxResults)

	videos := make([]*models.Video, 0, maxResults)
	seen := make(map[string]bool)
	pageToken := ""

	for int64(len(videos)) < maxResults {
		pageSize := maxResults - int64(len(videos))
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		call := c.service.Search.List([]string{"snippet"}).
			Q(query).
			Type("video").
			PublishedAfter(publishedAfter).
			MaxResults(pageSize).
			Context(ctx)
		if c.config.VideoDuration != "" {
			call = call.VideoDuration(c.config.VideoDuration)
		}
		if c.config.VideoDefinition != "" {
			call = call.VideoDefinition(c.config.VideoDefinition)
		}
		if c.config.Order != "" {
			call = call.Order(c.config.Order)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		searchResponse, err := call.Do()
		if err != nil {
			return nil, serviceError("search", err)
		}

		var pageIDs []string
		for _, item := range searchResponse.Items {
			if item.Id == nil || item.Id.VideoId == "" || seen[item.Id.VideoId] {
				continue
			}
			seen[item.Id.VideoId] = true
			pageIDs = append(pageIDs, item.Id.VideoId)
		}

		if len(pageIDs) > 0 {
			details, err := c.videoDetails(ctx, pageIDs)
			if err != nil {
				return nil, err
			}

			// videos.list does not preserve request order
			for _, id := range pageIDs {
				video, ok := details[id]
				if !ok {
					continue
				}
				if video.PublishedAt.IsZero() {
					log.Printf("Dropping %s: publish date could not be read", video.ID)
					continue
				}
				if video.PublishedAt.Before(cutoff) {
					log.Printf("Dropping %s: published %s, before cutoff", video.ID, video.PublishedAt.Format(time.RFC3339))
					continue
				}
				videos = append(videos, video)
				if int64(len(videos)) >= maxResults {
					break
				}
			}
		}

		pageToken = searchResponse.NextPageToken
		if pageToken == "" || len(searchResponse.Items) == 0 {
			break
		}
	}

	log.Printf("Found %d videos for %q", len(videos), query)

	return videos, nil
}

func (c *Client) videoDetails(ctx context.Context, ids []string) (map[string]*models.Video, error) {
	videosResponse, err := c.service.Videos.List([]string{"snippet", "contentDetails"}).
		Id(strings.Join(ids, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, serviceError("videos", err)
	}

	details := make(map[string]*models.Video, len(videosResponse.Items))
	for _, item := range videosResponse.Items {
		if item.Snippet == nil {
			continue
		}

		video := &models.Video{
			ID:           item.Id,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ChannelTitle: item.Snippet.ChannelTitle,
			URL:          models.WatchURL(item.Id),
		}
		if strings.TrimSpace(video.Description) == "" {
			video.Description = noDescription
		}
		if item.ContentDetails != nil {
			video.Duration = item.ContentDetails.Duration
			video.DurationSeconds = parseDurationSeconds(item.ContentDetails.Duration)
		}
		if publishedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			video.PublishedAt = publishedAt
		}

		details[item.Id] = video
	}

	return details, nil
}

func serviceError(call string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		reason := apiErr.Message
		if len(apiErr.Errors) > 0 && apiErr.Errors[0].Reason != "" {
			reason = apiErr.Errors[0].Reason
		}
		return fmt.Errorf("%w: %s.list returned %d (%s): %v", ErrService, call, apiErr.Code, reason, err)
	}
	return fmt.Errorf("%w: %s.list failed: %v", ErrService, call, err)
}

var durationPattern = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

func parseDurationSeconds(duration string) int {
	if duration == "" {
		return 0
	}

	// ISO 8601, e.g. "PT1M30S", "PT45S", "PT2H15M30S"
	matches := durationPattern.FindStringSubmatch(duration)
	if len(matches) == 0 {
		return 0
	}

	var totalSeconds int
	for i, unit := range []int{3600, 60, 1} {
		if matches[i+1] == "" {
			continue
		}
		if n, err := strconv.Atoi(matches[i+1]); err == nil {
			totalSeconds += n * unit
		}
	}

	return totalSeconds
}
