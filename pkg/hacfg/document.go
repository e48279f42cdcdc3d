package hacfg

import (
	"bytes"
	"encoding/json"
	"github.com/pkg/errors"
	"math"
	"strconv"
	"strings"
)

var (
	ErrMissingGroups = errors.New("config does not have groups key")
	ErrInvalidConfig = errors.New("invalid config document")
)

// Document - S3上的HA配置文件
type Document struct {
	Groups Groups `json:"groups"`
}

// Groups - 保持配置文件中的顺序
type Groups []Group

type Group struct {
	Name    string   `json:"-"`
	Devices []Device `json:"devices"`
}

// Device - 配置文件中为只有一个key的对象: {"<name>": {"addresses": [...]}}
type Device struct {
	Name      string
	Addresses []Address
}

type Address struct {
	IP   string `json:"ip"`
	Port Port   `json:"port"`
	Test string `json:"test"`
	// Count和Failure目前只解析, 不参与检查
	Count   int `json:"count"`
	Failure int `json:"failure"`
}

// Port - 端口可以是数字或者数字字符串
type Port int

func (p *Port) UnmarshalJSON(data []byte) error {
	if n, err := wholeNumber(data); err == nil {
		*p = Port(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Errorf("port must be a number or a numeric string, got %s", data)
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.Errorf("port must be a number or a numeric string, got %q", s)
	}
	*p = Port(n)
	return nil
}

func (a *Address) UnmarshalJSON(data []byte) error {
	type plain Address
	var raw struct {
		plain
		Count   json.RawMessage `json:"count"`
		Failure json.RawMessage `json:"failure"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.WithStack(err)
	}
	*a = Address(raw.plain)
	var err error
	if a.Count, err = optionalWholeNumber(raw.Count); err != nil {
		return errors.WithMessage(err, "count")
	}
	if a.Failure, err = optionalWholeNumber(raw.Failure); err != nil {
		return errors.WithMessage(err, "failure")
	}
	return nil
}

// wholeNumber - 443和443.0都是整数
func wholeNumber(data []byte) (int, error) {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return 0, errors.WithStack(err)
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, errors.Errorf("%s is not an integer", data)
	}
	return int(f), nil
}

func optionalWholeNumber(data json.RawMessage) (int, error) {
	if len(data) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return 0, nil
	}
	return wholeNumber(data)
}

func (g *Groups) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return errors.WithStack(err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.Errorf("groups must be an object, got %v", tok)
	}
	groups := Groups{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return errors.WithStack(err)
		}
		name, _ := tok.(string)
		var group Group
		if err := dec.Decode(&group); err != nil {
			return errors.Wrapf(err, "group %s", name)
		}
		group.Name = name
		groups = append(groups, group)
	}
	if _, err := dec.Token(); err != nil {
		return errors.WithStack(err)
	}
	*g = groups
	return nil
}

func (d *Device) UnmarshalJSON(data []byte) error {
	var entry map[string]struct {
		Addresses []Address `json:"addresses"`
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return errors.WithStack(err)
	}
	if len(entry) != 1 {
		return errors.Errorf("device entry must have exactly one name, got %d", len(entry))
	}
	for name, device := range entry {
		d.Name = name
		d.Addresses = device.Addresses
	}
	return nil
}

// ValidationError - JSON Schema校验失败, errors.Is(err, ErrInvalidConfig)为true
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return ErrInvalidConfig.Error() + ": " + strings.Join(e.Details, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Parse - 解析并校验配置文件
func Parse(data []byte) (*Document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, errors.Wrap(err, "decode config document")
	}
	raw, ok := top["groups"]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, ErrMissingGroups
	}
	if err := validate(data); err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ValidationError{Details: []string{err.Error()}}
	}
	return &doc, nil
}

// DeviceNames - 按配置顺序返回所有设备名
func (d *Document) DeviceNames() []string {
	var names []string
	for _, group := range d.Groups {
		for _, device := range group.Devices {
			names = append(names, device.Name)
		}
	}
	return names
}
