package spincube

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Vertex struct {
	Position [3]float32 `spincube:"layout" location:"0" format:"float3"`
	Normal   [3]float32 `spincube:"layout" location:"1" format:"float3"`
	UV       [2]float32 `spincube:"layout" location:"2" format:"float2"`
}

// Geometry is an indexed triangle list plus the unique edges of those
// triangles, used for wireframe drawing.
type Geometry struct {
	Vertices []Vertex
	Indices  []uint16
	Edges    []uint16
}

// BoxGeometry builds a box centered on the origin. Each face is split into a
// grid of segments; every face has its own vertices so normals and UVs stay flat.
func BoxGeometry(width, height, depth float32, widthSegments, heightSegments, depthSegments int) *Geometry {
	ws := max(widthSegments, 1)
	hs := max(heightSegments, 1)
	ds := max(depthSegments, 1)

	g := &Geometry{}
	// u, v, w index into xyz; udir/vdir flip axes so every face winds CCW from outside
	g.buildPlane(2, 1, 0, -1, -1, depth, height, width, ds, hs)  // +x
	g.buildPlane(2, 1, 0, 1, -1, depth, height, -width, ds, hs)  // -x
	g.buildPlane(0, 2, 1, 1, 1, width, depth, height, ws, ds)    // +y
	g.buildPlane(0, 2, 1, 1, -1, width, depth, -height, ws, ds)  // -y
	g.buildPlane(0, 1, 2, 1, -1, width, height, depth, ws, hs)   // +z
	g.buildPlane(0, 1, 2, -1, -1, width, height, -depth, ws, hs) // -z
	g.Edges = uniqueEdges(g.Indices)
	return g
}

func (g *Geometry) buildPlane(u, v, w int, udir, vdir float32, width, height, depth float32, gridX, gridY int) {
	segW := width / float32(gridX)
	segH := height / float32(gridY)
	halfW, halfH, halfD := width/2, height/2, depth/2

	var normal [3]float32
	if depth > 0 {
		normal[w] = 1
	} else {
		normal[w] = -1
	}

	base := uint16(len(g.Vertices))
	for iy := 0; iy <= gridY; iy++ {
		y := float32(iy)*segH - halfH
		for ix := 0; ix <= gridX; ix++ {
			x := float32(ix)*segW - halfW

			var pos [3]float32
			pos[u] = x * udir
			pos[v] = y * vdir
			pos[w] = halfD

			g.Vertices = append(g.Vertices, Vertex{
				Position: pos,
				Normal:   normal,
				UV:       [2]float32{float32(ix) / float32(gridX), 1 - float32(iy)/float32(gridY)},
			})
		}
	}

	row := uint16(gridX + 1)
	for iy := 0; iy < gridY; iy++ {
		for ix := 0; ix < gridX; ix++ {
			a := base + uint16(ix) + row*uint16(iy)
			b := base + uint16(ix) + row*uint16(iy+1)
			c := base + uint16(ix+1) + row*uint16(iy+1)
			d := base + uint16(ix+1) + row*uint16(iy)
			g.Indices = append(g.Indices, a, b, d, b, c, d)
		}
	}
}

func uniqueEdges(indices []uint16) []uint16 {
	type edge struct{ a, b uint16 }
	seen := make(map[edge]struct{}, len(indices))
	edges := make([]uint16, 0, len(indices)*2)
	add := func(a, b uint16) {
		if a > b {
			a, b = b, a
		}
		e := edge{a, b}
		if _, ok := seen[e]; ok {
			return
		}
		seen[e] = struct{}{}
		edges = append(edges, a, b)
	}
	for i := 0; i+2 < len(indices); i += 3 {
		add(indices[i], indices[i+1])
		add(indices[i+1], indices[i+2])
		add(indices[i+2], indices[i])
	}
	return edges
}

// Bounds returns the axis aligned bounds of the vertices.
func (g *Geometry) Bounds() (lo, hi mgl32.Vec3) {
	if len(g.Vertices) == 0 {
		return
	}
	lo = mgl32.Vec3(g.Vertices[0].Position)
	hi = lo
	for _, v := range g.Vertices[1:] {
		for i := 0; i < 3; i++ {
			lo[i] = min(lo[i], v.Position[i])
			hi[i] = max(hi[i], v.Position[i])
		}
	}
	return lo, hi
}
