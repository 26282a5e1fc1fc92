package provider

import (
	"github.com/guttosm/geo-cache-service/internal/domain/model"
)

// matrixCell maps one batch request onto a cell of a matrix call.
type matrixCell struct {
	request     int
	origin      int
	destination int
}

// matrixChunk is one origins x destinations call covering some requests.
type matrixChunk struct {
	origins      []model.Coordinate
	destinations []model.Coordinate
	cells        []matrixCell

	originIdx      map[model.Coordinate]int
	destinationIdx map[model.Coordinate]int
}

func newMatrixChunk() *matrixChunk {
	return &matrixChunk{
		originIdx:      make(map[model.Coordinate]int),
		destinationIdx: make(map[model.Coordinate]int),
	}
}

// fits reports whether adding (o, d) keeps the chunk within limits.
func (c *matrixChunk) fits(o, d model.Coordinate, limits matrixLimits) bool {
	origins := len(c.origins)
	if _, ok := c.originIdx[o]; !ok {
		origins++
	}
	destinations := len(c.destinations)
	if _, ok := c.destinationIdx[d]; !ok {
		destinations++
	}
	return origins <= limits.origins &&
		destinations <= limits.destinations &&
		origins*destinations <= limits.elements
}

func (c *matrixChunk) add(request int, o, d model.Coordinate) {
	oi, ok := c.originIdx[o]
	if !ok {
		oi = len(c.origins)
		c.originIdx[o] = oi
		c.origins = append(c.origins, o)
	}
	di, ok := c.destinationIdx[d]
	if !ok {
		di = len(c.destinations)
		c.destinationIdx[d] = di
		c.destinations = append(c.destinations, d)
	}
	c.cells = append(c.cells, matrixCell{request: request, origin: oi, destination: di})
}

type matrixLimits struct {
	origins      int
	destinations int
	elements     int
}

// planMatrix packs distance requests greedily into matrix calls. Requests
// sharing an origin or destination reuse the same row or column.
func planMatrix(reqs []model.Request, limits matrixLimits) []*matrixChunk {
	var (
		chunks  []*matrixChunk
		current = newMatrixChunk()
	)
	for i, r := range reqs {
		o, d := *r.Origin, *r.Destination
		if len(current.cells) > 0 && !current.fits(o, d, limits) {
			chunks = append(chunks, current)
			current = newMatrixChunk()
		}
		current.add(i, o, d)
	}
	if len(current.cells) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

func validDistanceRequest(r model.Request) bool {
	return r.Kind == model.KindDistance && r.Origin != nil && r.Destination != nil
}
