package teleop

// Family names one of the four logical command families.
type Family string

const (
	FamilyMove        Family = "move"
	FamilyRotate      Family = "rotate"
	FamilySpeedChange Family = "speed_change"
	FamilySpeedQuery  Family = "speed_query"
)

// Command is a logical teleoperation command before translation to
// device keystrokes. Commands are stateless and constructed per request.
type Command struct {
	family Family
	arg    string
}

// Move moves the robot in one of up, down, left, right.
func Move(direction string) Command {
	return Command{family: FamilyMove, arg: direction}
}

// Rotate turns the robot left or right.
func Rotate(direction string) Command {
	return Command{family: FamilyRotate, arg: direction}
}

// SpeedChange adjusts the speed setpoint: increase or decrease.
func SpeedChange(action string) Command {
	return Command{family: FamilySpeedChange, arg: action}
}

// SpeedQuery reads the last-written speed setpoint. It sends no bytes.
func SpeedQuery() Command {
	return Command{family: FamilySpeedQuery}
}

// Family returns the command's family.
func (c Command) Family() Family { return c.family }

// Arg returns the command's enum argument ("" for SpeedQuery).
func (c Command) Arg() string { return c.arg }

// cursorRepeat is how many times a movement keystroke is repeated per
// command, matching the console's expected input cadence.
const cursorRepeat = 5

// Cursor application-mode sequences the teleop console reads as numpad
// arrows.
var moveKeys = map[string]string{
	"up":    "\x1bOA",
	"down":  "\x1bOB",
	"right": "\x1bOC",
	"left":  "\x1bOD",
}

var rotateKeys = map[string]string{
	"left":  "<",
	"right": ">",
}

var speedKeys = map[string]string{
	"increase": "+",
	"decrease": "-",
}

// Translate maps a logical command to the keystroke sequence delivered to
// the console. It is pure and total over the closed enums: any value
// outside an enum fails with an invalid-parameter Failure before any
// transport write is attempted. SpeedQuery translates to no bytes.
func Translate(c Command) ([]byte, error) {
	switch c.family {
	case FamilyMove:
		key, ok := moveKeys[c.arg]
		if !ok {
			return nil, failf(KindInvalidParameter,
				"invalid move direction %q, valid directions: up, down, left, right", c.arg)
		}
		return repeat(key, cursorRepeat), nil
	case FamilyRotate:
		key, ok := rotateKeys[c.arg]
		if !ok {
			return nil, failf(KindInvalidParameter,
				"invalid rotation direction %q, valid directions: left, right", c.arg)
		}
		return repeat(key, cursorRepeat), nil
	case FamilySpeedChange:
		key, ok := speedKeys[c.arg]
		if !ok {
			return nil, failf(KindInvalidParameter,
				"invalid speed action %q, valid actions: increase, decrease", c.arg)
		}
		return []byte(key), nil
	case FamilySpeedQuery:
		return nil, nil
	default:
		return nil, failf(KindInvalidParameter, "unknown command family %q", c.family)
	}
}

func repeat(key string, n int) []byte {
	out := make([]byte, 0, n*len(key))
	for i := 0; i < n; i++ {
		out = append(out, key...)
	}
	return out
}
