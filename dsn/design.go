package dsn

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"topola/geom"
)

var log = logrus.WithField("component", "dsn")

// ErrBadDesign is returned when a .dsn file parses as an
// S-expression but is missing a section the board construction
// needs, or references a padstack/image/layer it never declared.
var ErrBadDesign = errors.New("dsn: malformed design")

// Rule is one (rule ...) block's width and clearance, either the
// structure-wide default or a class override.
type Rule struct {
	Width     float64
	Clearance float64
}

// Padstack is a pad template declared in the library section. Shapes
// on layer names we can't resolve at parse time are kept by name and
// resolved against the declared layer stack during board
// construction ("signal" and other wildcards expand to every layer).
type Padstack struct {
	Name   string
	Shapes []PadShape
}

// PadShape is one (shape ...) of a padstack: the enclosing-circle
// radius of whatever geometry the exporter drew, on one named layer.
// Rects and polygons are conservatively reduced to their enclosing
// circle — the router only needs a wraparoundable disc.
type PadShape struct {
	Layer  string
	Radius float64
	Offset geom.Point
}

// ImagePin is one pin of a library image: a padstack reference plus
// the pin's offset within the component footprint.
type ImagePin struct {
	Padstack string
	ID       string
	At       geom.Point
	Rotate   float64
}

// Image is a component footprint from the library section.
type Image struct {
	Name string
	Pins []ImagePin
}

// Placement is one placed component instance.
type Placement struct {
	Image  string
	RefDes string
	At     geom.Point
	Front  bool
	Rotate float64
}

// NetDef is one (net ...) of the network section: a net name and the
// "REF-PIN" pin names connected by it, in declaration order.
type NetDef struct {
	Name string
	Pins []string
}

// ClassDef is one (class ...) of the network section: a named net
// class, its member nets, and its rule override.
type ClassDef struct {
	Name string
	Nets []string
	Rule Rule
	Via  string
}

// WireDef is one pre-routed (wire (path ...)) of the wiring section.
type WireDef struct {
	Layer string
	Width float64
	Path  []geom.Point
	Net   string
}

// ViaDef is one pre-routed (via ...) of the wiring section.
type ViaDef struct {
	Padstack string
	At       geom.Point
	Net      string
}

// Design is the parsed subset of a .dsn file, ready to be turned
// into a board by MakeBoard.
type Design struct {
	Name       string
	Unit       string
	Resolution float64

	Layers []string
	Rule   Rule

	Padstacks map[string]*Padstack
	Images    map[string]*Image
	Places    []Placement

	Nets    []NetDef
	Classes []ClassDef

	Wires []WireDef
	Vias  []ViaDef
}

// LoadDesign reads and parses a .dsn file from disk.
func LoadDesign(path string) (*Design, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDesign(string(src))
}

// ParseDesign parses .dsn source text into a Design.
func ParseDesign(src string) (*Design, error) {
	root, err := parseSexpr(src)
	if err != nil {
		return nil, err
	}
	if root.Name != "pcb" && root.Name != "PCB" {
		return nil, fmt.Errorf("%w: toplevel list is %q, want pcb", ErrBadDesign, root.Name)
	}

	d := &Design{
		Padstacks: make(map[string]*Padstack),
		Images:    make(map[string]*Image),
	}
	if len(root.Atoms) > 0 {
		d.Name = root.Atoms[0]
	}
	if unit := root.Child("unit"); unit != nil && len(unit.Atoms) > 0 {
		d.Unit = unit.Atoms[0]
	}
	if res := root.Child("resolution"); res != nil && len(res.Atoms) >= 2 {
		d.Unit = res.Atoms[0]
		d.Resolution, _ = strconv.ParseFloat(res.Atoms[1], 64)
	}

	if structure := root.Child("structure"); structure != nil {
		d.parseStructure(structure)
	} else {
		return nil, fmt.Errorf("%w: missing structure section", ErrBadDesign)
	}
	if library := root.Child("library"); library != nil {
		d.parseLibrary(library)
	}
	if placement := root.Child("placement"); placement != nil {
		d.parsePlacement(placement)
	}
	if network := root.Child("network"); network != nil {
		d.parseNetwork(network)
	}
	if wiring := root.Child("wiring"); wiring != nil {
		d.parseWiring(wiring)
	}

	log.WithFields(logrus.Fields{
		"design": d.Name,
		"layers": len(d.Layers),
		"nets":   len(d.Nets),
		"places": len(d.Places),
	}).Info("dsn: design parsed")
	return d, nil
}

func (d *Design) parseStructure(structure *Node) {
	for _, layer := range structure.ChildrenNamed("layer") {
		if len(layer.Atoms) > 0 {
			d.Layers = append(d.Layers, layer.Atoms[0])
		}
	}
	if rule := structure.Child("rule"); rule != nil {
		d.Rule = parseRule(rule)
	}
}

func parseRule(rule *Node) Rule {
	var r Rule
	if w := rule.Child("width"); w != nil && len(w.Atoms) > 0 {
		r.Width, _ = strconv.ParseFloat(w.Atoms[0], 64)
	}
	// A rule block may carry several clearance entries qualified by
	// (type ...); the unqualified one is the default, and we take the
	// first of those.
	for _, c := range rule.ChildrenNamed("clearance") {
		if len(c.Atoms) == 0 {
			continue
		}
		if r.Clearance == 0 || c.Child("type") == nil {
			r.Clearance, _ = strconv.ParseFloat(c.Atoms[0], 64)
		}
		if c.Child("type") == nil {
			break
		}
	}
	return r
}

func (d *Design) parseLibrary(library *Node) {
	for _, image := range library.ChildrenNamed("image") {
		if len(image.Atoms) == 0 {
			continue
		}
		img := &Image{Name: image.Atoms[0]}
		for _, pin := range image.ChildrenNamed("pin") {
			p, ok := parseImagePin(pin)
			if !ok {
				log.WithField("image", img.Name).Warn("dsn: skipping malformed pin")
				continue
			}
			img.Pins = append(img.Pins, p)
		}
		d.Images[img.Name] = img
	}
	for _, padstack := range library.ChildrenNamed("padstack") {
		if len(padstack.Atoms) == 0 {
			continue
		}
		ps := &Padstack{Name: padstack.Atoms[0]}
		for _, shape := range padstack.ChildrenNamed("shape") {
			if s, ok := parsePadShape(shape); ok {
				ps.Shapes = append(ps.Shapes, s)
			}
		}
		d.Padstacks[ps.Name] = ps
	}
}

// parseImagePin handles `(pin <padstack> [(rotate <deg>)] <id> <x> <y>)`.
func parseImagePin(pin *Node) (ImagePin, bool) {
	if len(pin.Atoms) < 4 {
		return ImagePin{}, false
	}
	x, errX := strconv.ParseFloat(pin.Atoms[len(pin.Atoms)-2], 64)
	y, errY := strconv.ParseFloat(pin.Atoms[len(pin.Atoms)-1], 64)
	if errX != nil || errY != nil {
		return ImagePin{}, false
	}
	p := ImagePin{
		Padstack: pin.Atoms[0],
		ID:       pin.Atoms[len(pin.Atoms)-3],
		At:       geom.Point{X: x, Y: y},
	}
	if rot := pin.Child("rotate"); rot != nil && len(rot.Atoms) > 0 {
		p.Rotate, _ = strconv.ParseFloat(rot.Atoms[0], 64)
	}
	return p, true
}

// parsePadShape reduces any of the shape kinds Specctra allows
// (circle, rect, polygon, path) to an enclosing circle on the shape's
// named layer.
func parsePadShape(shape *Node) (PadShape, bool) {
	for _, c := range shape.Children {
		switch c.Name {
		case "circle":
			// (circle <layer> <diameter> [<cx> <cy>])
			if len(c.Atoms) < 2 {
				continue
			}
			diam, err := strconv.ParseFloat(c.Atoms[1], 64)
			if err != nil {
				continue
			}
			s := PadShape{Layer: c.Atoms[0], Radius: diam / 2}
			if len(c.Atoms) >= 4 {
				s.Offset.X, _ = strconv.ParseFloat(c.Atoms[2], 64)
				s.Offset.Y, _ = strconv.ParseFloat(c.Atoms[3], 64)
			}
			return s, true
		case "rect":
			// (rect <layer> <x1> <y1> <x2> <y2>)
			if len(c.Atoms) < 5 {
				continue
			}
			x1, _ := strconv.ParseFloat(c.Atoms[1], 64)
			y1, _ := strconv.ParseFloat(c.Atoms[2], 64)
			x2, _ := strconv.ParseFloat(c.Atoms[3], 64)
			y2, _ := strconv.ParseFloat(c.Atoms[4], 64)
			center := geom.Point{X: (x1 + x2) / 2, Y: (y1 + y2) / 2}
			radius := math.Hypot(x2-x1, y2-y1) / 2
			return PadShape{Layer: c.Atoms[0], Radius: radius, Offset: center}, true
		case "polygon", "path":
			// (polygon <layer> <aperture> <x> <y> ...)
			if len(c.Atoms) < 4 {
				continue
			}
			var pts []geom.Point
			for i := 2; i+1 < len(c.Atoms); i += 2 {
				x, errX := strconv.ParseFloat(c.Atoms[i], 64)
				y, errY := strconv.ParseFloat(c.Atoms[i+1], 64)
				if errX != nil || errY != nil {
					break
				}
				pts = append(pts, geom.Point{X: x, Y: y})
			}
			if len(pts) == 0 {
				continue
			}
			var center geom.Point
			for _, p := range pts {
				center = center.Add(p)
			}
			center = center.Scale(1 / float64(len(pts)))
			var radius float64
			for _, p := range pts {
				radius = math.Max(radius, center.Dist(p))
			}
			if aperture, err := strconv.ParseFloat(c.Atoms[1], 64); err == nil {
				radius += aperture / 2
			}
			return PadShape{Layer: c.Atoms[0], Radius: radius, Offset: center}, true
		}
	}
	return PadShape{}, false
}

func (d *Design) parsePlacement(placement *Node) {
	for _, component := range placement.ChildrenNamed("component") {
		if len(component.Atoms) == 0 {
			continue
		}
		image := component.Atoms[0]
		for _, place := range component.ChildrenNamed("place") {
			// (place <refdes> <x> <y> <side> <rotation> ...)
			if len(place.Atoms) < 5 {
				log.WithField("image", image).Warn("dsn: skipping malformed place")
				continue
			}
			x, errX := strconv.ParseFloat(place.Atoms[1], 64)
			y, errY := strconv.ParseFloat(place.Atoms[2], 64)
			rot, errR := strconv.ParseFloat(place.Atoms[4], 64)
			if errX != nil || errY != nil || errR != nil {
				continue
			}
			d.Places = append(d.Places, Placement{
				Image:  image,
				RefDes: place.Atoms[0],
				At:     geom.Point{X: x, Y: y},
				Front:  place.Atoms[3] != "back",
				Rotate: rot,
			})
		}
	}
}

func (d *Design) parseNetwork(network *Node) {
	for _, net := range network.ChildrenNamed("net") {
		if len(net.Atoms) == 0 {
			continue
		}
		def := NetDef{Name: net.Atoms[0]}
		if pins := net.Child("pins"); pins != nil {
			def.Pins = append(def.Pins, pins.Atoms...)
		}
		d.Nets = append(d.Nets, def)
	}
	for _, class := range network.ChildrenNamed("class") {
		if len(class.Atoms) == 0 {
			continue
		}
		def := ClassDef{Name: class.Atoms[0], Nets: class.Atoms[1:]}
		if rule := class.Child("rule"); rule != nil {
			def.Rule = parseRule(rule)
		}
		if circuit := class.Child("circuit"); circuit != nil {
			if useVia := circuit.Child("use_via"); useVia != nil && len(useVia.Atoms) > 0 {
				def.Via = useVia.Atoms[0]
			}
		}
		d.Classes = append(d.Classes, def)
	}
}

func (d *Design) parseWiring(wiring *Node) {
	for _, wire := range wiring.ChildrenNamed("wire") {
		path := wire.Child("path")
		if path == nil || len(path.Atoms) < 4 {
			continue
		}
		def := WireDef{Layer: path.Atoms[0]}
		def.Width, _ = strconv.ParseFloat(path.Atoms[1], 64)
		for i := 2; i+1 < len(path.Atoms); i += 2 {
			x, errX := strconv.ParseFloat(path.Atoms[i], 64)
			y, errY := strconv.ParseFloat(path.Atoms[i+1], 64)
			if errX != nil || errY != nil {
				break
			}
			def.Path = append(def.Path, geom.Point{X: x, Y: y})
		}
		if net := wire.Child("net"); net != nil && len(net.Atoms) > 0 {
			def.Net = net.Atoms[0]
		}
		if len(def.Path) >= 2 {
			d.Wires = append(d.Wires, def)
		}
	}
	for _, via := range wiring.ChildrenNamed("via") {
		// (via <padstack> <x> <y> (net <name>))
		if len(via.Atoms) < 3 {
			continue
		}
		x, errX := strconv.ParseFloat(via.Atoms[1], 64)
		y, errY := strconv.ParseFloat(via.Atoms[2], 64)
		if errX != nil || errY != nil {
			continue
		}
		def := ViaDef{Padstack: via.Atoms[0], At: geom.Point{X: x, Y: y}}
		if net := via.Child("net"); net != nil && len(net.Atoms) > 0 {
			def.Net = net.Atoms[0]
		}
		d.Vias = append(d.Vias, def)
	}
}
