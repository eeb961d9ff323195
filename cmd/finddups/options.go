package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// OptionType defines the type of value an option expects
type OptionType int

const (
	OptionTypeBool OptionType = iota
	OptionTypeString
	OptionTypeInt
	OptionTypeCount // each occurrence adds one, e.g. -vvv
	OptionTypeList  // each occurrence appends a value, e.g. --set a:1 --set b:2
)

// OptionDef defines a command-line option
type OptionDef struct {
	Long        string     // Long option name (without --)
	Short       string     // Short option name (without -)
	Type        OptionType // Type of value expected
	Description string     // Help description
	Default     string     // Default value
}

// ParsedOptions holds the parsed command-line options
type ParsedOptions struct {
	values        map[string]string
	lists         map[string][]string
	args          []string
	defs          map[string]*OptionDef
	order         []string          // Definition order, for usage output
	shortMap      map[string]string // Maps short options to long options
	explicitlySet map[string]bool   // Tracks which options were explicitly set
}

// NewParsedOptions creates a new options parser
func NewParsedOptions() *ParsedOptions {
	return &ParsedOptions{
		values:        make(map[string]string),
		lists:         make(map[string][]string),
		args:          []string{},
		defs:          make(map[string]*OptionDef),
		shortMap:      make(map[string]string),
		explicitlySet: make(map[string]bool),
	}
}

// DefineOption defines a command-line option
func (p *ParsedOptions) DefineOption(long, short string, optType OptionType, defaultValue, description string) {
	def := &OptionDef{
		Long:        long,
		Short:       short,
		Type:        optType,
		Description: description,
		Default:     defaultValue,
	}
	if _, exists := p.defs[long]; !exists {
		p.order = append(p.order, long)
	}
	p.defs[long] = def
	if short != "" {
		p.shortMap[short] = long
	}

	if defaultValue != "" && optType != OptionTypeList {
		p.values[long] = defaultValue
	}
}

// Parse parses command-line arguments. Options may appear anywhere; "--"
// ends option parsing.
func (p *ParsedOptions) Parse(args []string) error {
	consumed := make([]bool, len(args))

	for i := 0; i < len(args); i++ {
		if consumed[i] {
			continue
		}

		arg := args[i]

		if arg == "--" {
			consumed[i] = true
			for j := i + 1; j < len(args); j++ {
				if !consumed[j] {
					p.args = append(p.args, args[j])
					consumed[j] = true
				}
			}
			break
		}

		if strings.HasPrefix(arg, "--") {
			consumed[i] = true
			if err := p.parseLongOption(arg, args, i, consumed); err != nil {
				return err
			}
		} else if strings.HasPrefix(arg, "-") && len(arg) > 1 {
			consumed[i] = true
			if err := p.parseShortOptions(arg, args, i, consumed); err != nil {
				return err
			}
		}
	}

	for i := 0; i < len(args); i++ {
		if !consumed[i] {
			p.args = append(p.args, args[i])
		}
	}

	return nil
}

// parseLongOption parses --option, --option=value or --option value
func (p *ParsedOptions) parseLongOption(arg string, args []string, i int, consumed []bool) error {
	optName := strings.TrimPrefix(arg, "--")
	var optValue string
	hasValue := false

	if equalPos := strings.Index(optName, "="); equalPos != -1 {
		optValue = optName[equalPos+1:]
		optName = optName[:equalPos]
		hasValue = true
	}

	def, exists := p.defs[optName]
	if !exists {
		return fmt.Errorf("unknown option: --%s", optName)
	}

	switch def.Type {
	case OptionTypeBool:
		if !hasValue {
			p.set(optName, "true")
			return nil
		}
		switch optValue {
		case "true", "1":
			p.set(optName, "true")
		case "false", "0":
			p.set(optName, "false")
		default:
			return fmt.Errorf("invalid boolean value for --%s: %s", optName, optValue)
		}

	case OptionTypeCount:
		if !hasValue {
			p.increment(optName)
			return nil
		}
		if _, err := strconv.Atoi(optValue); err != nil {
			return fmt.Errorf("invalid integer value for --%s: %s", optName, optValue)
		}
		p.set(optName, optValue)

	case OptionTypeString, OptionTypeInt, OptionTypeList:
		if !hasValue {
			next := p.findNextAvailableArg(args, i, consumed)
			if next == "" {
				return fmt.Errorf("option --%s requires a value", optName)
			}
			optValue = next
		}
		return p.assign(def, optValue, "--"+optName)
	}

	return nil
}

// parseShortOptions parses short option(s) (-o or -abc)
func (p *ParsedOptions) parseShortOptions(arg string, args []string, i int, consumed []bool) error {
	shortOpts := strings.TrimPrefix(arg, "-")

	for _, r := range shortOpts {
		if _, exists := p.shortMap[string(r)]; !exists {
			return fmt.Errorf("unknown option: -%s", string(r))
		}
	}

	for _, r := range shortOpts {
		short := string(r)
		longOpt := p.shortMap[short]
		def := p.defs[longOpt]

		switch def.Type {
		case OptionTypeBool:
			p.set(longOpt, "true")

		case OptionTypeCount:
			p.increment(longOpt)

		case OptionTypeString, OptionTypeInt, OptionTypeList:
			next := p.findNextAvailableArg(args, i, consumed)
			if next == "" {
				return fmt.Errorf("option -%s requires a value", short)
			}
			if err := p.assign(def, next, "-"+short); err != nil {
				return err
			}
		}
	}

	return nil
}

func (p *ParsedOptions) assign(def *OptionDef, value, spelled string) error {
	switch def.Type {
	case OptionTypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("invalid integer value for %s: %s", spelled, value)
		}
		p.set(def.Long, value)
	case OptionTypeList:
		p.lists[def.Long] = append(p.lists[def.Long], value)
		p.explicitlySet[def.Long] = true
	default:
		p.set(def.Long, value)
	}
	return nil
}

func (p *ParsedOptions) set(option, value string) {
	p.values[option] = value
	p.explicitlySet[option] = true
}

func (p *ParsedOptions) increment(option string) {
	count := 0
	if p.explicitlySet[option] {
		count = p.GetInt(option)
	}
	p.set(option, strconv.Itoa(count+1))
}

// findNextAvailableArg finds the next available argument and marks it consumed
func (p *ParsedOptions) findNextAvailableArg(args []string, startIdx int, consumed []bool) string {
	for i := startIdx + 1; i < len(args); i++ {
		if !consumed[i] && !strings.HasPrefix(args[i], "-") {
			consumed[i] = true
			return args[i]
		}
	}
	return ""
}

// GetString returns a string option value
func (p *ParsedOptions) GetString(option string) string {
	return p.values[option]
}

// GetInt returns an integer option value
func (p *ParsedOptions) GetInt(option string) int {
	if val, exists := p.values[option]; exists {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return 0
}

// GetBool returns a boolean option value
func (p *ParsedOptions) GetBool(option string) bool {
	return p.values[option] == "true"
}

// GetList returns every value given for a list option, in command-line order
func (p *ParsedOptions) GetList(option string) []string {
	return p.lists[option]
}

// IsSet returns true if an option was explicitly set
func (p *ParsedOptions) IsSet(option string) bool {
	return p.explicitlySet[option]
}

// GetArgs returns non-option arguments
func (p *ParsedOptions) GetArgs() []string {
	return p.args
}

// ShowUsage writes the option summary in definition order
func (p *ParsedOptions) ShowUsage(w io.Writer) {
	fmt.Fprintf(w, "Options:\n")

	for _, long := range p.order {
		def := p.defs[long]
		var shortOpt string
		if def.Short != "" {
			shortOpt = fmt.Sprintf("-%s, ", def.Short)
		}

		var valueDesc string
		switch def.Type {
		case OptionTypeString, OptionTypeList:
			valueDesc = "=VALUE"
		case OptionTypeInt:
			valueDesc = "=N"
		}

		fmt.Fprintf(w, "  %s--%s%s\n", shortOpt, def.Long, valueDesc)
		fmt.Fprintf(w, "        %s\n", def.Description)
	}
}
