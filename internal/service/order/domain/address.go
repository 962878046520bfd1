package domain

import "strings"

// Address 是收货地址值对象，没有独立身份
type Address struct {
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
	ZipCode    string `json:"zipCode"`
}

// Format 输出 "street, number - complement, district, city - state, CEP: zip"，无补充信息时省略 " - complement"
func (a Address) Format() string {
	var sb strings.Builder
	sb.WriteString(a.Street)
	sb.WriteString(", ")
	sb.WriteString(a.Number)
	if a.Complement != "" {
		sb.WriteString(" - ")
		sb.WriteString(a.Complement)
	}
	sb.WriteString(", ")
	sb.WriteString(a.District)
	sb.WriteString(", ")
	sb.WriteString(a.City)
	sb.WriteString(" - ")
	sb.WriteString(a.State)
	sb.WriteString(", CEP: ")
	sb.WriteString(a.ZipCode)
	return sb.String()
}

// Merge 用 patch 中的非空字段覆盖当前地址
func (a Address) Merge(patch Address) Address {
	if patch.Street != "" {
		a.Street = patch.Street
	}
	if patch.Number != "" {
		a.Number = patch.Number
	}
	if patch.Complement != "" {
		a.Complement = patch.Complement
	}
	if patch.District != "" {
		a.District = patch.District
	}
	if patch.City != "" {
		a.City = patch.City
	}
	if patch.State != "" {
		a.State = patch.State
	}
	if patch.ZipCode != "" {
		a.ZipCode = patch.ZipCode
	}
	return a
}

func (a Address) IsZero() bool {
	return a == Address{}
}
