package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// errBadRequest marks binding failures whose message is safe to return.
type errBadRequest struct{ msg string }

func (e errBadRequest) Error() string { return e.msg }

// bindJSON decodes the body into out and validates its struct tags.
func bindJSON(c fiber.Ctx, out any) error {
	if err := c.Bind().JSON(out); err != nil {
		return errBadRequest{"invalid request body"}
	}
	if err := validate.Struct(out); err != nil {
		return errBadRequest{formatValidationError(err)}
	}
	return nil
}

func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, ", ")
}

func paramID(c fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, errBadRequest{"invalid " + name}
	}
	return id, nil
}

func queryID(c fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errBadRequest{"invalid " + name}
	}
	return &id, nil
}

func queryBool(c fiber.Ctx, name string) (*bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errBadRequest{"invalid " + name}
	}
	return &b, nil
}

// queryDate reads a YYYY-MM-DD calendar day in loc.
func queryDate(c fiber.Ctx, name string, loc *time.Location) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return nil, errBadRequest{"invalid " + name + ", expected YYYY-MM-DD"}
	}
	return &t, nil
}

// queryTime accepts RFC 3339 or a bare date. A bare date used as the end of
// a range covers the whole day.
func queryTime(c fiber.Ctx, name string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return nil, errBadRequest{"invalid " + name + ", expected RFC 3339 or YYYY-MM-DD"}
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}

// period reads the required start and end of a report.
func period(c fiber.Ctx, loc *time.Location) (time.Time, time.Time, error) {
	start, err := queryTime(c, "start", loc, false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := queryTime(c, "end", loc, true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start == nil || end == nil {
		return time.Time{}, time.Time{}, errBadRequest{"start and end are required"}
	}
	return *start, *end, nil
}

func paging(c fiber.Ctx) (int, int) {
	return fiber.Query[int](c, "page"), fiber.Query[int](c, "per_page")
}

// fail answers binding errors with 400 and everything else through mapError.
func fail(c fiber.Ctx, err error) error {
	var br errBadRequest
	if errors.As(err, &br) {
		return badRequest(c, br.msg)
	}
	return mapError(c, err)
}
