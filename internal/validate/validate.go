package validate

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"

	"stockpos/internal/domain"
)

var (
	reSerial = regexp.MustCompile(`^[A-Za-z0-9._:-]{3,64}$`)
	reCode   = regexp.MustCompile(`^[A-Za-z0-9._/-]{1,64}$`)
	reQ      = regexp.MustCompile(`^[\p{L}\p{N} _'.,/-]{1,60}$`)

	once sync.Once
	v    *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		v = validator.New()
		// report json field names instead of Go names
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("serial", func(fl validator.FieldLevel) bool {
			return reSerial.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("code", func(fl validator.FieldLevel) bool {
			return reCode.MatchString(fl.Field().String())
		})
	})
	return v
}

// Struct validates tagged request DTOs. Failures come back as VALIDATION_FAILED
// with a field -> tag map in the details.
func Struct(s any) error {
	err := engine().Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return domain.Invalid("invalid request")
	}
	fields := make(map[string]string, len(ves))
	for _, fe := range ves {
		fields[fe.Field()] = fe.Tag()
	}
	return domain.Invalid("invalid request").With("fields", fields)
}

// Phone normalizes a number to E.164 for the given default region.
func Phone(s, region string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	p, err := libphonenumber.Parse(s, region)
	if err != nil || !libphonenumber.IsValidNumber(p) {
		return "", false
	}
	return libphonenumber.Format(p, libphonenumber.E164), true
}

func Serial(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reSerial.MatchString(s)
}

// Q validates a free-text search filter.
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if len(s) > 60 {
		s = s[:60]
	}
	return s, reQ.MatchString(s)
}

// ID parses a positive integer identifier.
func ID(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Page clamps pagination to [1, 200] items per page.
func Page(pageStr, sizeStr string) (page, size int) {
	page, err := strconv.Atoi(strings.TrimSpace(pageStr))
	if err != nil || page < 1 {
		page = 1
	}
	size, err = strconv.Atoi(strings.TrimSpace(sizeStr))
	if err != nil || size < 1 {
		size = 50
	}
	if size > 200 {
		size = 200
	}
	return page, size
}
