package tile

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "tile")
