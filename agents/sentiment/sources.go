package sentiment

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/swingdesk/swingdesk/cache"
	"github.com/swingdesk/swingdesk/config"
	"github.com/swingdesk/swingdesk/httpclient"
	"github.com/swingdesk/swingdesk/logger"
	"github.com/swingdesk/swingdesk/resilience"
	"github.com/swingdesk/swingdesk/tools"
)

// Tool names, in selection-preference order: primary news source first,
// alternate aggregator second, social sources last.
const (
	ToolNews    = "fetch_news"
	ToolGNews   = "fetch_gnews"
	ToolReddit  = "fetch_reddit_mentions"
	ToolTwitter = "fetch_twitter_mentions"
)

var redditSubreddits = []string{"stocks", "investing", "StockMarket", "IndianStockMarket"}

// Sources owns the HTTP bindings behind the evidence-fetching tools and
// registers them on a tool registry. Fetches are cached per (tool, subject,
// scope) so repeated loop rounds within the TTL reuse prior results.
type Sources struct {
	cfg    config.SourcesConfig
	store  cache.Store
	log    *logger.Logger
	news   *httpclient.Client
	gnews  *httpclient.Client
	reddit *httpclient.Client
}

// NewSources builds the source bindings. store may be nil to disable fetch
// caching.
func NewSources(cfg config.SourcesConfig, store cache.Store, log *logger.Logger) (*Sources, error) {
	retry := resilience.DefaultRetryConfig()

	news, err := httpclient.New(httpclient.Config{
		Timeout: 30 * time.Second,
		Retry:   &retry,
	})
	if err != nil {
		return nil, err
	}
	gnews, err := httpclient.New(httpclient.Config{
		BaseURL: "https://gnews.io/api/v4",
		Timeout: 30 * time.Second,
		Retry:   &retry,
	})
	if err != nil {
		return nil, err
	}
	reddit, err := httpclient.New(httpclient.Config{
		BaseURL: "https://www.reddit.com",
		Timeout: 30 * time.Second,
		Headers: map[string]string{"User-Agent": "swingdesk/1.0"},
		Retry:   &retry,
		// Reddit throttles unauthenticated clients hard.
		RateLimit: &resilience.RateLimiterConfig{Name: "reddit", Rate: 1, Burst: 2},
	})
	if err != nil {
		return nil, err
	}

	return &Sources{
		cfg:    cfg,
		store:  store,
		log:    log.WithComponent("sentiment.sources"),
		news:   news,
		gnews:  gnews,
		reddit: reddit,
	}, nil
}

// Register declares all evidence tools on the registry. Tools whose
// credential is missing, and the not-yet-implemented Twitter source, are
// registered as unavailable so selection can skip them with a logged
// degradation instead of failing mid-loop.
func (s *Sources) Register(reg *tools.Registry) error {
	params := []tools.Param{
		{Name: "symbol", Type: tools.TypeString, Description: "Stock symbol", Required: true},
		{Name: "company_name", Type: tools.TypeString, Description: "Company name", Required: true},
		{Name: "days", Type: tools.TypeInt, Description: "Lookback window in days", Default: 2},
		{Name: "max_results", Type: tools.TypeInt, Description: "Maximum results", Default: 50},
	}

	entries := []tools.Tool{
		{
			Descriptor: tools.Descriptor{
				Name:        ToolNews,
				Description: "Fetch news from the primary provider. Use first; expand days when coverage is thin.",
				Params:      params,
			},
			Handler:     s.cached(ToolNews, s.fetchNews),
			Unavailable: s.cfg.NewsAPIKey == "",
		},
		{
			Descriptor: tools.Descriptor{
				Name:        ToolGNews,
				Description: "Fetch news from the GNews aggregator. Use when the primary source has low volume.",
				Params:      params,
			},
			Handler:     s.cached(ToolGNews, s.fetchGNews),
			Unavailable: s.cfg.GNewsAPIKey == "",
		},
		{
			Descriptor: tools.Descriptor{
				Name:        ToolReddit,
				Description: "Fetch Reddit mentions from investor subreddits. Supplementary social signal.",
				Params:      params,
			},
			Handler: s.cached(ToolReddit, s.fetchReddit),
		},
		{
			Descriptor: tools.Descriptor{
				Name:        ToolTwitter,
				Description: "Fetch Twitter/X mentions. Supplementary social signal.",
				Params:      params,
			},
			// TODO: wire a real Twitter binding once API access exists.
			Handler:     func(context.Context, tools.Args) (any, error) { return nil, fmt.Errorf("twitter source not implemented") },
			Unavailable: true,
		},
	}

	for _, t := range entries {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// fetcher is a tool handler specialized to evidence fetching.
type fetcher func(ctx context.Context, args tools.Args) ([]Article, error)

// cached wraps a fetcher with (tool, subject, scope) caching and adapts it
// to the registry handler signature.
func (s *Sources) cached(name string, fn fetcher) tools.Handler {
	return func(ctx context.Context, args tools.Args) (any, error) {
		key := cache.GenerateKey("tool:"+name, map[string]any{
			"symbol": args.String("symbol"),
			"days":   args.Int("days"),
			"max":    args.Int("max_results"),
		})
		if s.store != nil {
			if hit, ok := cache.GetJSON[[]Article](ctx, s.store, key); ok {
				s.log.Debug("fetch cache hit", logger.Fields(logger.FieldTool, name, logger.FieldCacheHit, true))
				return *hit, nil
			}
		}

		articles, err := fn(ctx, args)
		if err != nil {
			return nil, err
		}
		if s.store != nil {
			cache.SetJSON(ctx, s.store, key, &articles)
		}
		return articles, nil
	}
}

// newsRequest is the Event Registry getArticles request body.
type newsRequest struct {
	Action                 string   `json:"action"`
	Keyword                string   `json:"keyword"`
	SourceLocationURI      []string `json:"sourceLocationUri"`
	IgnoreSourceGroupURI   string   `json:"ignoreSourceGroupUri"`
	ArticlesPage           int      `json:"articlesPage"`
	ArticlesCount          int      `json:"articlesCount"`
	ArticlesSortBy         string   `json:"articlesSortBy"`
	ArticlesSortByAsc      bool     `json:"articlesSortByAsc"`
	DataType               []string `json:"dataType"`
	ForceMaxDataTimeWindow int      `json:"forceMaxDataTimeWindow"`
	ResultType             string   `json:"resultType"`
	APIKey                 string   `json:"apiKey"`
	DateStart              string   `json:"dateStart"`
	DateEnd                string   `json:"dateEnd"`
	IncludeArticleTitle    bool     `json:"includeArticleTitle"`
	IncludeArticleBody     bool     `json:"includeArticleBody"`
}

type newsResponse struct {
	Articles struct {
		Results []struct {
			Title       string `json:"title"`
			Body        string `json:"body"`
			DateTimePub string `json:"dateTimePub"`
			Source      struct {
				Title string `json:"title"`
			} `json:"source"`
		} `json:"results"`
	} `json:"articles"`
}

func (s *Sources) fetchNews(ctx context.Context, args tools.Args) ([]Article, error) {
	days := args.Int("days")
	now := time.Now()
	body := newsRequest{
		Action:                 "getArticles",
		Keyword:                args.String("company_name"),
		SourceLocationURI:      []string{"http://en.wikipedia.org/wiki/India"},
		IgnoreSourceGroupURI:   "paywall/paywalled_sources",
		ArticlesPage:           1,
		ArticlesCount:          10,
		ArticlesSortBy:         "date",
		DataType:               []string{"news", "pr"},
		ForceMaxDataTimeWindow: days,
		ResultType:             "articles",
		APIKey:                 s.cfg.NewsAPIKey,
		DateStart:              now.AddDate(0, 0, -days).Format("2006-01-02"),
		DateEnd:                now.Format("2006-01-02"),
		IncludeArticleTitle:    true,
		IncludeArticleBody:     true,
	}

	resp, err := httpclient.Post[newsResponse](s.news, ctx, s.cfg.NewsAPIURL, body)
	if err != nil {
		return nil, fmt.Errorf("news fetch: %w", err)
	}

	articles := make([]Article, 0, len(resp.Articles.Results))
	for _, item := range resp.Articles.Results {
		articles = append(articles, Article{
			Title:         item.Title,
			Description:   truncate(item.Body, 500),
			PublishedDate: item.DateTimePub,
			Source:        item.Source.Title,
		})
	}
	s.log.Info("fetched news articles", logger.Fields(logger.FieldTool, ToolNews, "count", len(articles)))
	return articles, nil
}

type gnewsResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (s *Sources) fetchGNews(ctx context.Context, args tools.Args) ([]Article, error) {
	days := args.Int("days")
	maxResults := args.Int("max_results")
	if maxResults > 100 {
		maxResults = 100
	}

	resp, err := httpclient.Get[gnewsResponse](s.gnews, ctx, "/search",
		httpclient.WithQueryParam("q", args.String("company_name")+" "+args.String("symbol")),
		httpclient.WithQueryParam("token", s.cfg.GNewsAPIKey),
		httpclient.WithQueryParam("lang", "en"),
		httpclient.WithQueryParam("max", fmt.Sprintf("%d", maxResults)),
		httpclient.WithQueryParam("from", time.Now().AddDate(0, 0, -days).Format("2006-01-02T15:04:05Z")),
		httpclient.WithQueryParam("sortby", "publishedAt"),
	)
	if err != nil {
		return nil, fmt.Errorf("gnews fetch: %w", err)
	}

	articles := make([]Article, 0, len(resp.Articles))
	for _, item := range resp.Articles {
		source := item.Source.Name
		if source == "" {
			source = "GNews"
		}
		articles = append(articles, Article{
			Title:         item.Title,
			Description:   item.Description,
			PublishedDate: item.PublishedAt,
			Source:        source,
		})
	}
	s.log.Info("fetched gnews articles", logger.Fields(logger.FieldTool, ToolGNews, "count", len(articles)))
	return articles, nil
}

type redditResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				Title      string  `json:"title"`
				Selftext   string  `json:"selftext"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (s *Sources) fetchReddit(ctx context.Context, args tools.Args) ([]Article, error) {
	days := args.Int("days")
	maxResults := args.Int("max_results")
	perSub := maxResults / len(redditSubreddits)
	if perSub > 25 {
		perSub = 25
	}
	if perSub < 1 {
		perSub = 1
	}
	window := "month"
	if days > 30 {
		window = "year"
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	var mentions []Article
	for _, sub := range redditSubreddits {
		resp, err := httpclient.Get[redditResponse](s.reddit, ctx, "/r/"+sub+"/search.json",
			httpclient.WithQueryParam("q", args.String("company_name")+" OR "+args.String("symbol")),
			httpclient.WithQueryParam("restrict_sr", "true"),
			httpclient.WithQueryParam("limit", fmt.Sprintf("%d", perSub)),
			httpclient.WithQueryParam("sort", "relevance"),
			httpclient.WithQueryParam("t", window),
		)
		if err != nil {
			// One unreachable subreddit should not sink the whole fetch.
			s.log.Warn("subreddit fetch failed", logger.Fields(
				logger.FieldTool, ToolReddit,
				"subreddit", sub,
				logger.FieldError, err.Error(),
			))
			continue
		}
		for _, child := range resp.Data.Children {
			post := child.Data
			created := time.Unix(int64(post.CreatedUTC), 0)
			if created.Before(cutoff) {
				continue
			}
			mentions = append(mentions, Article{
				Title:         post.Title,
				Description:   truncate(post.Selftext, 500),
				PublishedDate: created.UTC().Format(time.RFC3339),
				Source:        "reddit/r/" + sub,
			})
			if len(mentions) >= maxResults {
				break
			}
		}
		if len(mentions) >= maxResults {
			break
		}
	}

	s.log.Info("fetched reddit mentions", logger.Fields(logger.FieldTool, ToolReddit, "count", len(mentions)))
	return mentions, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
