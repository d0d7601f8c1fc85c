// Package rules implements the rule oracle: per-primitive clearance and
// width lookup keyed by net/layer conditions.
//
// An Oracle is configured through its Set*/Assign* methods and then
// queried; Clearance and Width only read its tables, while
// LargestClearance fills a per-net cache. No method takes a lock.
package rules

import "errors"

// ErrUnknownNetClass is returned when a net is assigned a class that
// was never registered with the Oracle.
var ErrUnknownNetClass = errors.New("rules: unknown net class")

// Conditions describes one side of a clearance/width query: the net
// (if any) of the primitive in question. A nil Net means "no net" —
// e.g. a board-outline keepout or an unnetted fixed dot.
type Conditions struct {
	Net *int
}

// NoNet is the Conditions value for an unnetted primitive.
var NoNet = Conditions{}

// ForNet returns Conditions for the given net ID.
func ForNet(net int) Conditions {
	n := net
	return Conditions{Net: &n}
}

// classPair is a pairwise clearance override key, normalized so
// (a, b) and (b, a) hash the same.
type classPair struct{ a, b string }

func newClassPair(a, b string) classPair {
	if a > b {
		a, b = b, a
	}
	return classPair{a, b}
}

// Oracle resolves clearance and trace width by net class: the
// clearance registered for the pair of the two nets' classes,
// defaulting to the structure-wide rule. It does not take the maximum
// of the two classes' own clearances.
type Oracle struct {
	// structureClearance is the board-wide default clearance used when
	// neither side belongs to a registered class, or when no
	// class-pair override applies.
	structureClearance float64

	// netClass maps a net ID to its class name. Nets absent from this
	// map are treated as belonging to the default ("") class.
	netClass map[int]string

	// classClearance gives the required clearance between two classes
	// (or a class and itself). Missing pairs fall back to
	// structureClearance.
	classClearance map[classPair]float64

	// classWidth gives the default trace width for a class.
	classWidth map[string]float64

	// largestClearance caches the maximum clearance value reachable
	// from a given net across all registered class pairs, used by
	// navmesh to bound vertex inflation.
	largestClearance map[int]float64
	largestOverall   float64
}

// NewOracle creates an Oracle with the given board-wide default
// clearance. Use AssignNetClass, SetClassClearance and SetClassWidth to
// register class overrides before the oracle is handed to core/navmesh.
func NewOracle(structureClearance float64) *Oracle {
	return &Oracle{
		structureClearance: structureClearance,
		netClass:           make(map[int]string),
		classClearance:     make(map[classPair]float64),
		classWidth:         make(map[string]float64),
		largestClearance:   make(map[int]float64),
		largestOverall:     structureClearance,
	}
}

// AssignNetClass registers net as a member of class. Must be called
// before clearance queries involving net are meaningful; unassigned
// nets are treated as class "".
func (o *Oracle) AssignNetClass(net int, class string) {
	o.netClass[net] = class
	o.invalidateLargest()
}

// SetClassClearance registers the clearance required between any pair
// of primitives belonging to classA and classB (classA == classB is
// valid and common: the clearance a class requires against itself).
func (o *Oracle) SetClassClearance(classA, classB string, clearance float64) {
	o.classClearance[newClassPair(classA, classB)] = clearance
	o.invalidateLargest()
}

// SetClassWidth registers the default trace width for class.
func (o *Oracle) SetClassWidth(class string, width float64) {
	o.classWidth[class] = width
}

func (o *Oracle) classOf(net *int) string {
	if net == nil {
		return ""
	}
	if c, ok := o.netClass[*net]; ok {
		return c
	}
	return ""
}

// Clearance returns the required clearance between two primitives
// described by a and b. Clearance is symmetric (Clearance(a,b) ==
// Clearance(b,a)) and non-negative.
func (o *Oracle) Clearance(a, b Conditions) float64 {
	classA, classB := o.classOf(a.Net), o.classOf(b.Net)
	if c, ok := o.classClearance[newClassPair(classA, classB)]; ok {
		return c
	}
	return o.structureClearance
}

// Width returns the default trace width registered for the net's
// class, or zero if the class has no registered width (callers should
// treat zero as "caller must supply a width explicitly").
func (o *Oracle) Width(c Conditions) float64 {
	return o.classWidth[o.classOf(c.Net)]
}

// LargestClearance returns the largest clearance value that could
// apply to a primitive of the given net (or to an unnetted primitive,
// if net is nil), used to bound navmesh vertex inflation.
func (o *Oracle) LargestClearance(net *int) float64 {
	if net == nil {
		return o.largestOverall
	}
	if v, ok := o.largestClearance[*net]; ok {
		return v
	}
	v := o.computeLargest(o.classOf(net))
	o.largestClearance[*net] = v
	return v
}

func (o *Oracle) computeLargest(class string) float64 {
	best := o.structureClearance
	for pair, clearance := range o.classClearance {
		if pair.a == class || pair.b == class {
			if clearance > best {
				best = clearance
			}
		}
	}
	return best
}

func (o *Oracle) invalidateLargest() {
	o.largestClearance = make(map[int]float64)
	best := o.structureClearance
	for _, c := range o.classClearance {
		if c > best {
			best = c
		}
	}
	o.largestOverall = best
}
