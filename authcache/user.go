package authcache

import (
	"encoding/json"
	"errors"
	"fmt"
)

/*
User is the cached identity. ID, Name and Email are the well-known fields;
any other field of the stored object lands in Profile and is written back
beside them, so the JSON form stays flat: {"id":..,"name":..,"email":..,...}.
*/
type User struct {
	ID      string
	Name    string
	Email   string
	Profile map[string]any
}

var reserved = map[string]bool{"id": true, "name": true, "email": true}

func (u User) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Profile)+3)
	for k, v := range u.Profile {
		if !reserved[k] {
			out[k] = v
		}
	}
	out["id"] = u.ID
	if u.Name != "" {
		out["name"] = u.Name
	}
	if u.Email != "" {
		out["email"] = u.Email
	}
	return json.Marshal(out)
}

func (u *User) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var decoded User
	for name, target := range map[string]*string{"id": &decoded.ID, "name": &decoded.Name, "email": &decoded.Email} {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("user field %q: %w", name, err)
		}
		delete(fields, name)
	}
	if decoded.ID == "" {
		return errors.New("user without id")
	}

	for name, raw := range fields {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("user field %q: %w", name, err)
		}
		if decoded.Profile == nil {
			decoded.Profile = make(map[string]any, len(fields))
		}
		decoded.Profile[name] = v
	}

	*u = decoded
	return nil
}
