package hwio

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type bankReg struct {
	offset uint16
	regPtr any
}

type tagOpts struct {
	offset    int // -1 if absent
	bank      int
	size      int
	vsize     int
	reset     uint64
	rwmask    uint64
	hasRWMask bool
	readonly  bool
	writeonly bool
	rcb       string
	wcb       string
	pcb       string
}

func parseTag(tag, fieldName string) (tagOpts, error) {
	opts := tagOpts{offset: -1}
	upper := strings.ToUpper(fieldName)

	for _, opt := range strings.Split(tag, ",") {
		if opt == "" {
			continue
		}
		key, val, hasval := strings.Cut(opt, "=")

		num := func() (uint64, error) {
			if !hasval {
				return 0, fmt.Errorf("field %s: option %q requires a value", fieldName, key)
			}
			n, err := strconv.ParseUint(val, 0, 64)
			if err != nil {
				return 0, fmt.Errorf("field %s: option %q: %w", fieldName, key, err)
			}
			return n, nil
		}

		var (
			n   uint64
			err error
		)
		switch key {
		case "offset":
			n, err = num()
			opts.offset = int(n)
		case "bank":
			n, err = num()
			opts.bank = int(n)
		case "size":
			n, err = num()
			opts.size = int(n)
		case "vsize":
			n, err = num()
			opts.vsize = int(n)
		case "reset":
			opts.reset, err = num()
		case "rwmask":
			opts.rwmask, err = num()
			opts.hasRWMask = true
		case "readonly":
			opts.readonly = true
		case "writeonly":
			opts.writeonly = true
		case "rcb":
			opts.rcb = cbName("Read", upper, val, hasval)
		case "wcb":
			opts.wcb = cbName("Write", upper, val, hasval)
		case "pcb":
			opts.pcb = cbName("Peek", upper, val, hasval)
		default:
			return opts, fmt.Errorf("field %s: unknown hwio option %q", fieldName, key)
		}
		if err != nil {
			return opts, err
		}
	}
	return opts, nil
}

func cbName(prefix, upper, explicit string, hasExplicit bool) string {
	if hasExplicit {
		return explicit
	}
	return prefix + upper
}

func method[T any](v reflect.Value, name string) (T, error) {
	var zero T
	m := v.MethodByName(name)
	if !m.IsValid() {
		return zero, fmt.Errorf("missing method %s on %s", name, v.Type())
	}
	fn, ok := m.Interface().(T)
	if !ok {
		return zero, fmt.Errorf("method %s on %s has wrong signature %s", name, v.Type(), m.Type())
	}
	return fn, nil
}

// InitRegs initializes all the hwio-tagged Reg8, Mem and Device fields of the
// struct pointed by ptr: names, reset values, masks, flags and callbacks.
func InitRegs(ptr any) error {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("InitRegs: expected pointer to struct, got %T", ptr)
	}
	s := v.Elem()
	st := s.Type()

	for i := range st.NumField() {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		opts, err := parseTag(tag, f.Name)
		if err != nil {
			return err
		}

		switch reg := s.Field(i).Addr().Interface().(type) {
		case *Reg8:
			reg.Name = f.Name
			reg.Value = uint8(opts.reset)
			if opts.hasRWMask {
				reg.RoMask = ^uint8(opts.rwmask)
			}
			if opts.readonly {
				reg.Flags |= ReadOnlyFlag
			}
			if opts.writeonly {
				reg.Flags |= WriteOnlyFlag
			}
			if opts.rcb != "" {
				if reg.ReadCb, err = method[func(uint8) uint8](v, opts.rcb); err != nil {
					return err
				}
			}
			if opts.pcb != "" {
				if reg.PeekCb, err = method[func(uint8) uint8](v, opts.pcb); err != nil {
					return err
				}
			}
			if opts.wcb != "" {
				if reg.WriteCb, err = method[func(uint8, uint8)](v, opts.wcb); err != nil {
					return err
				}
			}

		case *Mem:
			reg.Name = f.Name
			if reg.Data == nil && opts.size > 0 {
				reg.Data = make([]byte, opts.size)
			}
			if opts.vsize > 0 {
				reg.VSize = opts.vsize
			} else if reg.VSize == 0 {
				reg.VSize = opts.size
			}
			if opts.readonly {
				reg.Flags |= MemFlagReadOnly
			}
			if opts.wcb != "" {
				if reg.WriteCb, err = method[func(uint16, uint8)](v, opts.wcb); err != nil {
					return err
				}
			}

		case *Device:
			reg.Name = f.Name
			reg.Size = opts.size
			if opts.readonly {
				reg.Flags |= ReadOnlyFlag
			}
			if opts.writeonly {
				reg.Flags |= WriteOnlyFlag
			}
			if opts.rcb != "" {
				if reg.ReadCb, err = method[func(uint16) uint8](v, opts.rcb); err != nil {
					return err
				}
			}
			if opts.pcb != "" {
				if reg.PeekCb, err = method[func(uint16) uint8](v, opts.pcb); err != nil {
					return err
				}
			}
			if opts.wcb != "" {
				if reg.WriteCb, err = method[func(uint16, uint8)](v, opts.wcb); err != nil {
					return err
				}
			}

		default:
			return fmt.Errorf("field %s: unsupported hwio type %s", f.Name, f.Type)
		}
	}
	return nil
}

// MustInitRegs is like InitRegs but panics on error.
func MustInitRegs(ptr any) {
	if err := InitRegs(ptr); err != nil {
		panic(err)
	}
}

// bankGetRegs returns the registers of the given bank number, that is all
// hwio-tagged fields having an offset.
func bankGetRegs(bank any, bankNum int) ([]bankReg, error) {
	v := reflect.ValueOf(bank)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("bank: expected pointer to struct, got %T", bank)
	}
	s := v.Elem()
	st := s.Type()

	var regs []bankReg
	for i := range st.NumField() {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		opts, err := parseTag(tag, f.Name)
		if err != nil {
			return nil, err
		}
		if opts.offset < 0 || opts.bank != bankNum {
			continue
		}
		regs = append(regs, bankReg{
			offset: uint16(opts.offset),
			regPtr: s.Field(i).Addr().Interface(),
		})
	}
	return regs, nil
}
