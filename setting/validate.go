package setting

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/pkg/errors"
	"net"
	"regexp"
)

var (
	routeTablePattern = regexp.MustCompile(`^rtb-[0-9a-f]+$`)
	subnetPattern     = regexp.MustCompile(`^subnet-[0-9a-f]+$`)
	eniPattern        = regexp.MustCompile(`^eni-[0-9a-f]+$`)
)

func (c *config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Endpoint, is.URL),
		validation.Field(&c.ChecksInterval, validation.Required, validation.Min(1)),
		validation.Field(&c.Prometheus, validation.By(func(value interface{}) error {
			p, ok := value.(prometheus)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a prometheus config")
			}
			return validation.ValidateStruct(&p,
				validation.Field(&p.Address,
					validation.When(p.Enabled, validation.Required, validation.By(validateHostPort)),
				),
			)
		})),
		validation.Field(&c.Failovers, validation.Each(validation.By(validateFailover))),
	)
}

// ValidateSource - 需要从S3读取配置时检查bucket和key
func (c *config) ValidateSource() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Bucket, validation.Required),
		validation.Field(&c.Key, validation.Required),
	); err != nil {
		return errors.WithMessage(err, "config document location")
	}
	return nil
}

func validateFailover(value interface{}) error {
	f, ok := value.(failover)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a failover")
	}
	association := f.SubnetID != ""
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required),
		validation.Field(&f.Device, validation.Required),
		validation.Field(&f.RouteTableID, validation.Required, validation.Match(routeTablePattern)),
		validation.Field(&f.SubnetID, validation.Match(subnetPattern)),
		validation.Field(&f.DestinationCIDR,
			validation.When(!association, validation.Required, validation.By(validateCIDR)),
			validation.When(association, validation.Empty),
		),
		validation.Field(&f.NetworkInterfaceID,
			validation.When(!association, validation.Required, validation.Match(eniPattern)),
			validation.When(association, validation.Empty),
		),
	)
}

func validateCIDR(value interface{}) error {
	cidr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if _, _, err := net.ParseCIDR(cidr); err != nil {
		return validation.NewError("validation_invalid_cidr", "must be a valid CIDR block")
	}
	return nil
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if _, port, err := net.SplitHostPort(addr); err != nil || port == "" {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}
	return nil
}
