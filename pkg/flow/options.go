package flow

// IntRange is the value of an int option.
type IntRange struct {
	Val, Min, Max, Step int32
}

// FloatRange is the value of a float option.
type FloatRange struct {
	Val, Min, Max, Step float64
}

// SpecRange is the value of a drange-spec option.
type SpecRange struct {
	Min, Max, Step float64
}

// RGB is the value of an rgb option.
type RGB struct {
	Red, Green, Blue          uint32
	RedMax, GreenMax, BlueMax uint32
}

// DirectionVector is the value of a direction-vector option.
type DirectionVector struct {
	X, Y, Z  float64
	Min, Max float64
}
