package config

import (
	"strconv"
	"testing"
)

type testCase struct {
	data     interface{}
	error    bool
	errorMsg string
}

type s1 struct {
	Prm U16Param
}

type s2 struct {
	Prm U64Param
}

type s3 struct {
	Prm F64Param
}

type s4 struct {
	Prm SelectParam
}

type s5 struct {
	Prm IPV4Param
}

type s6 struct {
	Prm1 SelectParam
	Prm2 IPV4Param
	Prm3 BoolParam
	Prm4 U16Param
	Prm5 F64Param
	Prm6 U8Param
}

type s7 struct {
	Prm1 SelectParam
	prm2 IPV4Param
}

type s8 struct {
	Prm1 SelectParam
	Prm2 int
}

var noDisp Display = Display{}

var tests []testCase = []testCase{
	{s1{MakeU16(5, [2]uint16{0, 10}, noDisp)}, false, ""},
	{s1{MakeU16(11, [2]uint16{0, 10}, noDisp)}, true, "Prm : U16 value out of range"},
	{s2{MakeU64(100, [2]uint64{0, 1000}, noDisp)}, false, ""},
	{s2{MakeU64(1001, [2]uint64{0, 1000}, noDisp)}, true, "Prm : U64 value out of range"},
	{s3{MakeF64(0.05, [2]float64{0, 10}, noDisp)}, false, ""},
	{s3{MakeF64(-0.01, [2]float64{0, 10}, noDisp)}, true, "Prm : F64 value out of range"},
	{s4{MakeSelect("id", []string{"id"}, noDisp)}, false, ""},
	{s4{MakeSelect("seq", []string{"id"}, noDisp)}, true, "Prm : Select value not in list"},
	{s5{MakeIPV4("127.0.0.1", noDisp)}, false, ""},
	{s5{MakeIPV4("not an ip", noDisp)}, true, "Prm : Invalid IPV4 address"},
	{s6{
		MakeSelect("id", []string{"id"}, noDisp),
		MakeIPV4("10.0.0.1", noDisp),
		MakeBool(true, noDisp),
		MakeU16(9999, [2]uint16{0, 65535}, noDisp),
		MakeF64(0.1, [2]float64{0, 60}, noDisp),
		MakeU8(42, [2]uint8{1, 255}, noDisp),
	}, false, ""},
	{s7{MakeSelect("id", []string{"id"}, noDisp), MakeIPV4("127.0.0.1", noDisp)}, true, "prm2 : Could not retrieve unexported field"},
	{s8{MakeSelect("id", []string{"id"}, noDisp), 7}, true, "Prm2 : Invalid struct field type"},
	{7, true, "Config is not a struct"},
}

func TestValidate(t *testing.T) {
	for i, tc := range tests {
		err := Validate(tc.data)
		if tc.error {
			if err == nil {
				t.Errorf("test "+strconv.Itoa(i)+": err = nil; want '%s'", tc.errorMsg)
			} else if err.Error() != tc.errorMsg {
				t.Errorf("test "+strconv.Itoa(i)+": err = '%s'; want '%s'", err.Error(), tc.errorMsg)
			}
		} else if err != nil {
			t.Errorf("test "+strconv.Itoa(i)+": err = '%s'; want nil", err.Error())
		}
	}
}

func TestIPV4GetValue(t *testing.T) {
	p := MakeIPV4("192.168.1.5", noDisp)
	addr, err := p.GetValue()
	if err != nil {
		t.Errorf("err = '%s'; want nil", err.Error())
	}
	if addr != [4]byte{192, 168, 1, 5} {
		t.Errorf("addr = %v; want [192 168 1 5]", addr)
	}
}

func TestCopyValue(t *testing.T) {
	c1 := s6{
		MakeSelect("id", []string{"id"}, noDisp),
		MakeIPV4("127.0.0.1", noDisp),
		MakeBool(false, noDisp),
		MakeU16(8080, [2]uint16{0, 65535}, noDisp),
		MakeF64(0.1, [2]float64{0, 60}, noDisp),
		MakeU8(64, [2]uint8{1, 255}, noDisp),
	}
	c2 := c1
	c2.Prm2.Value = "10.1.2.3"
	c2.Prm4.Value = 9090
	c2.Prm5.Value = 0.25

	if err := CopyValue(&c1, c2); err != nil {
		t.Errorf("err = '%s'; want nil", err.Error())
	}
	if c1.Prm2.Value != "10.1.2.3" {
		t.Errorf("Prm2 = '%s'; want '10.1.2.3'", c1.Prm2.Value)
	}
	if c1.Prm4.Value != 9090 {
		t.Errorf("Prm4 = %d; want 9090", c1.Prm4.Value)
	}
	if c1.Prm5.Value != 0.25 {
		t.Errorf("Prm5 = %f; want 0.25", c1.Prm5.Value)
	}
}

func TestCopyValueWrongType(t *testing.T) {
	c1 := s1{MakeU16(5, [2]uint16{0, 10}, noDisp)}
	c2 := s2{MakeU64(5, [2]uint64{0, 10}, noDisp)}
	if err := CopyValue(&c1, c2); err == nil {
		t.Errorf("err = nil; want type mismatch error")
	}
}
