// Package scrape extracts the primary character listings from the official
// script tool. The tool is a single-page app, so extraction runs a headless
// browser, loads every character into a script, and reads the rendered
// night sheets and jinx table from the DOM.
package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/phauks/botc-data-sync/internal/catalog"
)

// Config controls the headless extraction session.
type Config struct {
	URL               string
	IconBaseURL       string
	UserAgent         string
	NavigationTimeout time.Duration
	RenderDelay       time.Duration
	ClickDelay        time.Duration
}

// DefaultURL is the official script tool.
const DefaultURL = "https://script.bloodontheclocktower.com/"

// Client implements catalog.PageClient with chromedp.
type Client struct {
	cfg         Config
	logger      *zap.Logger
	allocator   context.Context
	allocCancel context.CancelFunc
}

// New creates a headless extraction client backed by chromedp.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.IconBaseURL == "" {
		cfg.IconBaseURL = DefaultIconBaseURL
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 60 * time.Second
	}
	if cfg.RenderDelay <= 0 {
		cfg.RenderDelay = 2 * time.Second
	}
	if cfg.ClickDelay <= 0 {
		cfg.ClickDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Client{
		cfg:         cfg,
		logger:      logger,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}
}

// Close cancels the allocator context.
func (c *Client) Close() {
	c.allocCancel()
}

// rawItem is one sidebar character as read from the DOM.
type rawItem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Team    string `json:"team"`
	Ability string `json:"ability"`
	Icon    string `json:"icon"`
}

// rawNightItem is one night-sheet row. Non-character rows (dusk, dawn,
// minion and demon info) carry icons that do not parse to a character id.
type rawNightItem struct {
	Icon     string `json:"icon"`
	Reminder string `json:"reminder"`
}

type rawJinx struct {
	A      string `json:"a"`
	B      string `json:"b"`
	Reason string `json:"reason"`
}

type rawPayload struct {
	Characters []rawItem      `json:"characters"`
	FirstNight []rawNightItem `json:"firstNight"`
	OtherNight []rawNightItem `json:"otherNight"`
	Jinxes     []rawJinx      `json:"jinxes"`
}

type clickResult struct {
	Added  int `json:"added"`
	Failed int `json:"failed"`
}

// addAllJS clicks every sidebar character in one pass. Night order and
// jinxes only render for characters on the script.
const addAllJS = `(() => {
	const items = document.querySelectorAll('#all-characters .item[data-id]');
	let added = 0;
	let failed = 0;
	items.forEach(item => {
		try {
			item.click();
			added++;
		} catch (e) {
			failed++;
		}
	});
	return {added, failed};
})()`

const extractJS = `(() => {
	const text = el => el ? el.textContent.trim() : '';
	const icon = el => {
		const img = el.querySelector('img');
		return img ? (img.getAttribute('src') || '') : '';
	};

	const characters = [];
	document.querySelectorAll('#all-characters .item[data-id]').forEach(item => {
		characters.push({
			id: item.getAttribute('data-id') || '',
			name: text(item.querySelector('.character-name')),
			team: item.getAttribute('data-type') || '',
			ability: text(item.querySelector('.ability-text')),
			icon: icon(item),
		});
	});

	const night = sel => {
		const out = [];
		document.querySelectorAll(sel + ' .item').forEach(item => {
			out.push({
				icon: icon(item),
				reminder: text(item.querySelector('.night-sheet-reminder')),
			});
		});
		return out;
	};

	const jinxes = [];
	document.querySelectorAll('.jinxes-container .jinxes .item').forEach(item => {
		const icons = item.querySelectorAll('.icons img.icon');
		if (icons.length !== 2) return;
		jinxes.push({
			a: icons[0].getAttribute('src') || '',
			b: icons[1].getAttribute('src') || '',
			reason: text(item.querySelector('.jinx-text')),
		});
	});

	return {
		characters,
		firstNight: night('.first-night'),
		otherNight: night('.other-night'),
		jinxes,
	};
})()`

// Extract runs one full headless session and returns the four primary
// listings.
func (c *Client) Extract(ctx context.Context) (catalog.Extraction, error) {
	taskCtx, taskCancel := chromedp.NewContext(c.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, c.cfg.NavigationTimeout)
	defer cancel()

	// The outer ctx bounds the whole run; abandon the session when it ends.
	go func() {
		select {
		case <-ctx.Done():
			taskCancel()
		case <-taskCtx.Done():
		}
	}()

	var clicked clickResult
	var payload rawPayload
	actions := []chromedp.Action{
		c.userAgentAction(),
		chromedp.Navigate(c.cfg.URL),
		chromedp.WaitVisible(`#all-characters .item[data-id]`, chromedp.ByQuery),
		chromedp.Sleep(c.cfg.RenderDelay),
		chromedp.Evaluate(addAllJS, &clicked),
		chromedp.Sleep(c.cfg.ClickDelay),
		chromedp.Evaluate(extractJS, &payload),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return catalog.Extraction{}, fmt.Errorf("headless extraction: %w", err)
	}

	c.logger.Info("characters added to script",
		zap.Int("added", clicked.Added),
		zap.Int("failed", clicked.Failed),
	)

	return c.convert(payload), nil
}

func (c *Client) userAgentAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if c.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(c.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

// convert maps the DOM payload onto the extraction types, resolving icon
// paths to editions, ids, and image locations.
func (c *Client) convert(payload rawPayload) catalog.Extraction {
	var ex catalog.Extraction

	ex.Characters = make([]catalog.CoreRecord, 0, len(payload.Characters))
	for _, item := range payload.Characters {
		edition := EditionFromIcon(item.Icon)
		ex.Characters = append(ex.Characters, catalog.CoreRecord{
			ID:      item.ID,
			Name:    item.Name,
			Team:    catalog.Team(item.Team),
			Ability: item.Ability,
			Edition: edition,
			Icon:    LocalImagePath(edition, item.ID, item.Icon),
			IconURL: FullIconURL(c.cfg.IconBaseURL, item.Icon),
		})
	}

	ex.FirstNight = c.convertNight(payload.FirstNight)
	ex.OtherNight = c.convertNight(payload.OtherNight)

	ex.Jinxes = make([]catalog.JinxPair, 0, len(payload.Jinxes))
	for _, j := range payload.Jinxes {
		a := CharacterIDFromIcon(j.A)
		b := CharacterIDFromIcon(j.B)
		if a == "" || b == "" {
			c.logger.Warn("jinx pair with unparseable icons",
				zap.String("a", j.A), zap.String("b", j.B))
			continue
		}
		ex.Jinxes = append(ex.Jinxes, catalog.JinxPair{A: a, B: b, Reason: j.Reason})
	}
	return ex
}

// convertNight keeps only rows whose icon resolves to a character id. The
// sheets interleave dusk, dawn, and info rows that never hold a rank.
func (c *Client) convertNight(items []rawNightItem) []catalog.NightEntry {
	entries := make([]catalog.NightEntry, 0, len(items))
	for _, item := range items {
		id := CharacterIDFromIcon(item.Icon)
		if id == "" {
			continue
		}
		entries = append(entries, catalog.NightEntry{ID: id, Reminder: item.Reminder})
	}
	return entries
}
