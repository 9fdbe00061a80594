package sqltype

import (
	"errors"
	"fmt"
)

// ErrUnsupportedType is returned when a type code has no defined mapping or
// DDL declaration rule.
var ErrUnsupportedType = errors.New("unsupported type")

// ManagedType enumerates the column type categories of the schema management
// layer. The set is closed: every value is explicitly classified by the
// conversion and declaration tables below.
type ManagedType int

const (
	None ManagedType = iota
	BigInt
	Binary
	Bit
	Char
	Date
	DateTime
	DateTime2
	DateTimeOffset
	Decimal
	Float
	Geography
	Geometry
	HierarchyID
	Image
	Int
	Money
	NChar
	NText
	Numeric
	NVarChar
	NVarCharMax
	Real
	SmallDateTime
	SmallInt
	SmallMoney
	SysName
	Text
	Time
	Timestamp
	TinyInt
	UniqueIdentifier
	UserDefinedDataType
	UserDefinedTableType
	UserDefinedType
	VarBinary
	VarBinaryMax
	VarChar
	VarCharMax
	Variant
	Xml
)

var managedTypeNames = map[ManagedType]string{
	None:                 "None",
	BigInt:               "BigInt",
	Binary:               "Binary",
	Bit:                  "Bit",
	Char:                 "Char",
	Date:                 "Date",
	DateTime:             "DateTime",
	DateTime2:            "DateTime2",
	DateTimeOffset:       "DateTimeOffset",
	Decimal:              "Decimal",
	Float:                "Float",
	Geography:            "Geography",
	Geometry:             "Geometry",
	HierarchyID:          "HierarchyID",
	Image:                "Image",
	Int:                  "Int",
	Money:                "Money",
	NChar:                "NChar",
	NText:                "NText",
	Numeric:              "Numeric",
	NVarChar:             "NVarChar",
	NVarCharMax:          "NVarCharMax",
	Real:                 "Real",
	SmallDateTime:        "SmallDateTime",
	SmallInt:             "SmallInt",
	SmallMoney:           "SmallMoney",
	SysName:              "SysName",
	Text:                 "Text",
	Time:                 "Time",
	Timestamp:            "Timestamp",
	TinyInt:              "TinyInt",
	UniqueIdentifier:     "UniqueIdentifier",
	UserDefinedDataType:  "UserDefinedDataType",
	UserDefinedTableType: "UserDefinedTableType",
	UserDefinedType:      "UserDefinedType",
	VarBinary:            "VarBinary",
	VarBinaryMax:         "VarBinaryMax",
	VarChar:              "VarChar",
	VarCharMax:           "VarCharMax",
	Variant:              "Variant",
	Xml:                  "Xml",
}

func (t ManagedType) String() string {
	if name, ok := managedTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ManagedType(%d)", int(t))
}

// DriverType enumerates the column type categories understood by the database
// client/driver layer. Overlaps with ManagedType but is not isomorphic to it.
type DriverType int

const (
	DriverNone DriverType = iota
	DriverBigInt
	DriverBinary
	DriverBit
	DriverChar
	DriverDate
	DriverDateTime
	DriverDateTime2
	DriverDateTimeOffset
	DriverDecimal
	DriverFloat
	DriverGeography
	DriverGeometry
	DriverHierarchyID
	DriverImage
	DriverInt
	DriverMoney
	DriverNChar
	DriverNText
	DriverNVarChar
	DriverReal
	DriverSmallDateTime
	DriverSmallInt
	DriverSmallMoney
	DriverStructured
	DriverSysName
	DriverText
	DriverTime
	DriverTimestamp
	DriverTinyInt
	DriverUdt
	DriverUniqueIdentifier
	DriverVarBinary
	DriverVarChar
	DriverVariant
	DriverXml
)

var driverTypeNames = map[DriverType]string{
	DriverNone:             "None",
	DriverBigInt:           "BigInt",
	DriverBinary:           "Binary",
	DriverBit:              "Bit",
	DriverChar:             "Char",
	DriverDate:             "Date",
	DriverDateTime:         "DateTime",
	DriverDateTime2:        "DateTime2",
	DriverDateTimeOffset:   "DateTimeOffset",
	DriverDecimal:          "Decimal",
	DriverFloat:            "Float",
	DriverGeography:        "Geography",
	DriverGeometry:         "Geometry",
	DriverHierarchyID:      "HierarchyID",
	DriverImage:            "Image",
	DriverInt:              "Int",
	DriverMoney:            "Money",
	DriverNChar:            "NChar",
	DriverNText:            "NText",
	DriverNVarChar:         "NVarChar",
	DriverReal:             "Real",
	DriverSmallDateTime:    "SmallDateTime",
	DriverSmallInt:         "SmallInt",
	DriverSmallMoney:       "SmallMoney",
	DriverStructured:       "Structured",
	DriverSysName:          "SysName",
	DriverText:             "Text",
	DriverTime:             "Time",
	DriverTimestamp:        "Timestamp",
	DriverTinyInt:          "TinyInt",
	DriverUdt:              "Udt",
	DriverUniqueIdentifier: "UniqueIdentifier",
	DriverVarBinary:        "VarBinary",
	DriverVarChar:          "VarChar",
	DriverVariant:          "Variant",
	DriverXml:              "Xml",
}

func (t DriverType) String() string {
	if name, ok := driverTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DriverType(%d)", int(t))
}

// toDriver is the single authoritative ManagedType to DriverType table.
// Values absent from the table have no driver equivalent.
var toDriver = map[ManagedType]DriverType{
	BigInt:               DriverBigInt,
	Binary:               DriverBinary,
	Bit:                  DriverBit,
	Char:                 DriverChar,
	Date:                 DriverDate,
	DateTime:             DriverDateTime,
	DateTime2:            DriverDateTime2,
	DateTimeOffset:       DriverDateTimeOffset,
	Decimal:              DriverDecimal,
	Float:                DriverFloat,
	Image:                DriverImage,
	Int:                  DriverInt,
	Money:                DriverMoney,
	NChar:                DriverNChar,
	NText:                DriverNText,
	Numeric:              DriverDecimal,
	NVarChar:             DriverNVarChar,
	NVarCharMax:          DriverNVarChar,
	Real:                 DriverReal,
	SmallDateTime:        DriverSmallDateTime,
	SmallInt:             DriverSmallInt,
	SmallMoney:           DriverSmallMoney,
	Text:                 DriverText,
	Time:                 DriverTime,
	Timestamp:            DriverTimestamp,
	TinyInt:              DriverTinyInt,
	UniqueIdentifier:     DriverUniqueIdentifier,
	UserDefinedDataType:  DriverUdt,
	UserDefinedTableType: DriverStructured,
	VarBinary:            DriverVarBinary,
	VarBinaryMax:         DriverVarBinary,
	VarChar:              DriverVarChar,
	VarCharMax:           DriverVarChar,
	Variant:              DriverVariant,
	Xml:                  DriverXml,
}

// toManaged is the inverse table. Max variants collapse on the way out, so
// the round trip lands on the unbounded family member, never across families.
var toManaged = map[DriverType]ManagedType{
	DriverBigInt:           BigInt,
	DriverBinary:           Binary,
	DriverBit:              Bit,
	DriverChar:             Char,
	DriverDate:             Date,
	DriverDateTime:         DateTime,
	DriverDateTime2:        DateTime2,
	DriverDateTimeOffset:   DateTimeOffset,
	DriverDecimal:          Decimal,
	DriverFloat:            Float,
	DriverImage:            Image,
	DriverInt:              Int,
	DriverMoney:            Money,
	DriverNChar:            NChar,
	DriverNText:            NText,
	DriverNVarChar:         NVarChar,
	DriverReal:             Real,
	DriverSmallDateTime:    SmallDateTime,
	DriverSmallInt:         SmallInt,
	DriverSmallMoney:       SmallMoney,
	DriverStructured:       UserDefinedTableType,
	DriverText:             Text,
	DriverTime:             Time,
	DriverTimestamp:        Timestamp,
	DriverTinyInt:          TinyInt,
	DriverUdt:              UserDefinedDataType,
	DriverUniqueIdentifier: UniqueIdentifier,
	DriverVarBinary:        VarBinary,
	DriverVarChar:          VarChar,
	DriverVariant:          Variant,
	DriverXml:              Xml,
}

// ToDriverType converts a management-layer type code to its driver-layer
// equivalent. Codes with no driver representation (None, Geography, Geometry,
// HierarchyID, UserDefinedType, SysName) return ErrUnsupportedType.
func ToDriverType(t ManagedType) (DriverType, error) {
	driver, ok := toDriver[t]
	if !ok {
		return DriverNone, fmt.Errorf("%w: no driver type for %s", ErrUnsupportedType, t)
	}
	return driver, nil
}

// ToManagedType converts a driver-layer type code back to the management
// layer. Codes with no managed representation (None, SysName, HierarchyID,
// Geometry, Geography) return ErrUnsupportedType.
func ToManagedType(t DriverType) (ManagedType, error) {
	managed, ok := toManaged[t]
	if !ok {
		return None, fmt.Errorf("%w: no managed type for %s", ErrUnsupportedType, t)
	}
	return managed, nil
}
