// Package nav translates between result-view navigation parameters and the
// coordinate model.
//
// The query parameter named "x" carries the horizontal value and is stored
// in Coordinate.Y; "y" is stored in Coordinate.X. Links are written back with
// the same swap so that a link parsed by Parse yields the center it was built
// from.
package nav

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/kass/geo-planner/pkg/models"
)

// ResultPath is the route of the result view
const ResultPath = "/result"

// PlannersPath is the route of the planners listing
const PlannersPath = "/planners"

var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Entry is what a result view is mounted with
type Entry struct {
	Coordinate models.Coordinate
	Mode       models.ListMode
}

// Parse reads x, y and type from query values
func Parse(q url.Values) (Entry, error) {
	yAxis, err := parseAxis(q, "x")
	if err != nil {
		return Entry{}, err
	}
	xAxis, err := parseAxis(q, "y")
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Coordinate: models.Coordinate{X: xAxis, Y: yAxis},
		Mode:       models.ParseListMode(q.Get("type")),
	}, nil
}

// ParseLink parses a "/result?..." link produced by Link
func ParseLink(link string) (Entry, error) {
	u, err := url.Parse(link)
	if err != nil {
		return Entry{}, fmt.Errorf("parse link %q: %w", link, err)
	}
	if u.Path != ResultPath {
		return Entry{}, fmt.Errorf("link %q is not a result link", link)
	}
	return Parse(u.Query())
}

// Link builds the result link that re-searches around center in the given mode
func Link(mode models.ListMode, center models.Coordinate) string {
	return fmt.Sprintf("%s?type=%s&x=%s&y=%s",
		ResultPath, mode, models.FormatFloat(center.Y), models.FormatFloat(center.X))
}

// Links holds the two "search this area" links derived from the map center
type Links struct {
	Place      string
	Restaurant string
}

// ResearchLinks derives both mode links from the live map center
func ResearchLinks(center models.Coordinate) Links {
	return Links{
		Place:      Link(models.ModePlace, center),
		Restaurant: Link(models.ModeRestaurant, center),
	}
}

// For returns the link for mode
func (l Links) For(mode models.ListMode) string {
	if mode == models.ModePlace {
		return l.Place
	}
	return l.Restaurant
}

func parseAxis(q url.Values, name string) (float64, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, fmt.Errorf("%w: missing %q", ErrInvalidCoordinate, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q=%q", ErrInvalidCoordinate, name, raw)
	}
	return v, nil
}
