package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/paulmach/orb"
	"github.com/serjvanilla/go-overpass"
)

// HTTPClient is the transport go-overpass posts queries through.
// *http.Client and *CachingClient satisfy it.
type HTTPClient interface {
	PostForm(url string, data url.Values) (*http.Response, error)
}

// Overpass fetches highways from an Overpass API endpoint.
type Overpass struct {
	client   overpass.Client
	endpoint string
}

func NewOverpass(endpoint string, maxParallel int, httpClient HTTPClient) *Overpass {
	if endpoint == "" {
		endpoint = DEFAULT_OVERPASS_ENDPOINT
	}
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &Overpass{
		client:   overpass.NewWithSettings(endpoint, maxParallel, httpClient),
		endpoint: endpoint,
	}
}

// BuildQuery returns the Overpass QL for all highways in bound. The node
// positions come from the recursed nodes (">").
func BuildQuery(bound orb.Bound) string {
	// Overpass bbox顺序为(south,west,north,east)
	return fmt.Sprintf(
		`[out:json][timeout:%d];way["highway"](%.7f,%.7f,%.7f,%.7f);out body;>;out skel qt;`,
		OVERPASS_QUERY_TIMEOUT,
		bound.Min.Lat(), bound.Min.Lon(), bound.Max.Lat(), bound.Max.Lon(),
	)
}

func (o *Overpass) FetchTile(ctx context.Context, bound orb.Bound) ([]RoadElement, error) {
	query := BuildQuery(bound)
	type queryResult struct {
		result overpass.Result
		err    error
	}
	// go-overpass不支持context，查询放到独立goroutine中以便调用方放弃等待
	ch := make(chan queryResult, 1)
	go func() {
		result, err := o.client.Query(query)
		ch <- queryResult{result, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("overpass query to %s failed: %w", o.endpoint, r.err)
		}
		elements := WaysToElements(&r.result)
		log.Debugf("fetched %d ways in %v", len(elements), bound)
		return elements, nil
	}
}

// WaysToElements converts the ways of a query result ordered by id. Nodes the
// result did not describe are left out of Geometry, so that Validate rejects
// the way.
func WaysToElements(result *overpass.Result) []RoadElement {
	elements := make([]RoadElement, 0, len(result.Ways))
	for _, way := range result.Ways {
		if way == nil {
			continue
		}
		e := RoadElement{
			ID:       way.ID,
			NodeIDs:  make([]int64, 0, len(way.Nodes)),
			Geometry: make([]orb.Point, 0, len(way.Nodes)),
			Tags:     way.Tags,
		}
		for _, node := range way.Nodes {
			if node == nil {
				continue
			}
			e.NodeIDs = append(e.NodeIDs, node.ID)
			// 未返回坐标的节点只有id
			if node.Lat == 0 && node.Lon == 0 {
				continue
			}
			e.Geometry = append(e.Geometry, orb.Point{node.Lon, node.Lat})
		}
		elements = append(elements, e)
	}
	sort.Slice(elements, func(i, j int) bool { return elements[i].ID < elements[j].ID })
	return elements
}
