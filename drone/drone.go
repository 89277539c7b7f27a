// Package drone simulates a planar quadrotor with two rotors, used as the control task for
// evolved networks. The state is X = [y, z, phi, vy, vz, omega]: lateral and vertical offset
// from the target, roll angle, and their rates. The target is the zero state.
package drone

import (
	"math"
	"math/rand"
)

// StateSize is the length of the state vector.
const StateSize = 6

// Physical constants of the airframe.
const (
	Mass      = 0.5  // kg
	ArmLength = 0.2  // m, rotor distance from the centre of mass
	Inertia   = 0.01 // kg m^2, about the roll axis
	Gravity   = 9.81 // m/s^2
	MaxThrust = 5.0  // N per rotor
	TimeStep  = 0.01 // s
)

// DefaultXLimit bounds each state component. An episode ends when |y| reaches its limit.
var DefaultXLimit = [StateSize]float64{2.0, 2.0, math.Pi / 2, 5.0, 5.0, 10.0}

// Drone is a single simulation episode.
type Drone struct {
	Steps  int     // episode length the simulator was created for
	T      float64 // elapsed simulated time
	X      [StateSize]float64
	XLimit [StateSize]float64

	step int
}

// New starts an episode of the given length. The initial state is drawn uniformly from half
// of each limit using rng; a nil rng uses the global source.
func New(steps int, rng *rand.Rand) *Drone {
	d := &Drone{Steps: steps, XLimit: DefaultXLimit}
	uniform := rand.Float64
	if rng != nil {
		uniform = rng.Float64
	}
	for i := range d.X {
		half := 0.5 * d.XLimit[i]
		d.X[i] = (2*uniform() - 1) * half
	}
	return d
}

// ScaledState maps every component from [-limit, limit] to [0, 1]. Values outside the limits
// map outside [0, 1].
func (d *Drone) ScaledState() []float64 {
	out := make([]float64, StateSize)
	for i, x := range d.X {
		out[i] = 0.5 * (x + d.XLimit[i]) / d.XLimit[i]
	}
	return out
}

// Step advances the simulation by TimeStep with the given rotor thrusts (left, right) using
// semi-implicit Euler integration.
func (d *Drone) Step(force [2]float64) {
	y, z, phi := d.X[0], d.X[1], d.X[2]
	vy, vz, omega := d.X[3], d.X[4], d.X[5]

	thrust := force[0] + force[1]
	ay := -thrust * math.Sin(phi) / Mass
	az := thrust*math.Cos(phi)/Mass - Gravity
	alpha := ArmLength * (force[1] - force[0]) / Inertia

	vy += ay * TimeStep
	vz += az * TimeStep
	omega += alpha * TimeStep
	y += vy * TimeStep
	z += vz * TimeStep
	phi += omega * TimeStep

	d.X = [StateSize]float64{y, z, phi, vy, vz, omega}
	d.T += TimeStep
	d.step++
}

// StepCount returns the number of steps taken so far.
func (d *Drone) StepCount() int {
	return d.step
}

// OutOfBound reports whether the lateral offset reached its limit.
func (d *Drone) OutOfBound() bool {
	return math.Abs(d.X[0]) >= d.XLimit[0]
}

// Done reports whether the episode has used up its steps or left the lateral bound.
func (d *Drone) Done() bool {
	return d.step >= d.Steps || d.OutOfBound()
}

// ContinuousActuatorForce converts network outputs into rotor thrusts. Each output is clamped
// to [0, 1] and scaled by MaxThrust. Missing outputs mean zero thrust.
func ContinuousActuatorForce(action []float64) [2]float64 {
	var f [2]float64
	for i := 0; i < len(f) && i < len(action); i++ {
		a := action[i]
		if math.IsNaN(a) {
			a = 0
		}
		f[i] = math.Max(0, math.Min(1, a)) * MaxThrust
	}
	return f
}
