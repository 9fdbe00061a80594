package sqltype

import (
	"fmt"
	"strings"
)

// MaxLength marks a length-parameterized type as unbounded, matching the -1
// convention used by the catalog views.
const MaxLength = -1

// DataType describes a column's declared type. Immutable once constructed.
type DataType struct {
	Base      ManagedType `json:"base"`
	MaxLength int         `json:"max_length,omitempty"`
	Precision int         `json:"precision,omitempty"`
	Scale     int         `json:"scale,omitempty"`
}

// keywords holds the DDL spelling for every category that has one.
var keywords = map[ManagedType]string{
	BigInt:           "BIGINT",
	Binary:           "BINARY",
	Bit:              "BIT",
	Char:             "CHAR",
	Date:             "DATE",
	DateTime:         "DATETIME",
	DateTime2:        "DATETIME2",
	DateTimeOffset:   "DATETIMEOFFSET",
	Decimal:          "DECIMAL",
	Float:            "FLOAT",
	Image:            "IMAGE",
	Int:              "INT",
	Money:            "MONEY",
	NChar:            "NCHAR",
	NText:            "NTEXT",
	Numeric:          "NUMERIC",
	NVarChar:         "NVARCHAR",
	NVarCharMax:      "NVARCHAR",
	Real:             "REAL",
	SmallDateTime:    "SMALLDATETIME",
	SmallInt:         "SMALLINT",
	SmallMoney:       "SMALLMONEY",
	SysName:          "SYSNAME",
	Text:             "TEXT",
	Time:             "TIME",
	Timestamp:        "TIMESTAMP",
	TinyInt:          "TINYINT",
	UniqueIdentifier: "UNIQUEIDENTIFIER",
	VarBinary:        "VARBINARY",
	VarBinaryMax:     "VARBINARY",
	VarChar:          "VARCHAR",
	VarCharMax:       "VARCHAR",
	Variant:          "SQL_VARIANT",
	Xml:              "XML",
}

// Declare produces the canonical DDL type fragment for a descriptor, e.g.
// "DECIMAL(18, 4)", "VARCHAR(50)", "NVARCHAR(MAX)". Every category is
// explicitly classified into one of the declaration shapes; categories with
// no DDL spelling return ErrUnsupportedType naming the offending value.
func Declare(dt DataType) (string, error) {
	switch dt.Base {
	// Literal keyword, no parameters.
	case BigInt, Bit, Date, DateTime, Float, Image, Int, Money, NText, Real,
		SmallDateTime, SmallInt, SmallMoney, SysName, Text, Timestamp, TinyInt,
		UniqueIdentifier, Variant, Xml:
		return keywords[dt.Base], nil

	// Length-parameterized.
	case Binary, Char, NChar, NVarChar, VarBinary, VarChar:
		return fmt.Sprintf("%s(%d)", keywords[dt.Base], dt.MaxLength), nil

	// Unbounded variants.
	case NVarCharMax, VarBinaryMax, VarCharMax:
		return keywords[dt.Base] + "(MAX)", nil

	// Precision and scale.
	case Decimal, Numeric:
		return fmt.Sprintf("%s(%d, %d)", keywords[dt.Base], dt.Precision, dt.Scale), nil

	// Scale only (fractional seconds).
	case DateTime2, DateTimeOffset, Time:
		return fmt.Sprintf("%s(%d)", keywords[dt.Base], dt.Scale), nil

	case None, Geography, Geometry, HierarchyID, UserDefinedDataType,
		UserDefinedTableType, UserDefinedType:
		return "", fmt.Errorf("%w: no DDL declaration for %s", ErrUnsupportedType, dt.Base)

	default:
		return "", fmt.Errorf("%w: unclassified type %s", ErrUnsupportedType, dt.Base)
	}
}

// parseNames maps catalog type names to their base category before the Max
// variants are applied.
var parseNames = map[string]ManagedType{
	"bigint":           BigInt,
	"binary":           Binary,
	"bit":              Bit,
	"char":             Char,
	"date":             Date,
	"datetime":         DateTime,
	"datetime2":        DateTime2,
	"datetimeoffset":   DateTimeOffset,
	"decimal":          Decimal,
	"float":            Float,
	"geography":        Geography,
	"geometry":         Geometry,
	"hierarchyid":      HierarchyID,
	"image":            Image,
	"int":              Int,
	"money":            Money,
	"nchar":            NChar,
	"ntext":            NText,
	"numeric":          Numeric,
	"nvarchar":         NVarChar,
	"real":             Real,
	"smalldatetime":    SmallDateTime,
	"smallint":         SmallInt,
	"smallmoney":       SmallMoney,
	"sysname":          SysName,
	"text":             Text,
	"time":             Time,
	"timestamp":        Timestamp,
	"rowversion":       Timestamp,
	"tinyint":          TinyInt,
	"uniqueidentifier": UniqueIdentifier,
	"varbinary":        VarBinary,
	"varchar":          VarChar,
	"sql_variant":      Variant,
	"xml":              Xml,
}

// Parse builds a DataType from catalog metadata: the declared type name plus
// the length, precision and scale columns of INFORMATION_SCHEMA.COLUMNS. A
// maxLength of -1 selects the unbounded variant for types that have one.
func Parse(name string, maxLength, precision, scale int) (DataType, error) {
	base, ok := parseNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return DataType{}, fmt.Errorf("%w: unknown type name %q", ErrUnsupportedType, name)
	}

	if maxLength == MaxLength {
		switch base {
		case NVarChar:
			base = NVarCharMax
		case VarChar:
			base = VarCharMax
		case VarBinary:
			base = VarBinaryMax
		}
	}

	return DataType{Base: base, MaxLength: maxLength, Precision: precision, Scale: scale}, nil
}
