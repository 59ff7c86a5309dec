package station

import (
	"io"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"

	"stationsim/utility"
)

// TransferSession is one open upload session towards a diagnostics server.
type TransferSession interface {
	Upload(path string, r io.Reader) error
	Close() error
}

// TransferDialer opens a session for the given upload location.
type TransferDialer func(location *url.URL) (TransferSession, error)

type ftpSession struct {
	conn *ftp.ServerConn
}

// dialFtp is the default dialer. Anonymous login is used when the location
// carries no credentials.
func dialFtp(location *url.URL) (TransferSession, error) {
	address := location.Host
	if location.Port() == "" {
		address += ":21"
	}
	conn, err := ftp.Dial(address, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, utility.Errf("ftp dial %s: %v", address, err)
	}
	user := location.User.Username()
	password, _ := location.User.Password()
	if user == "" {
		user = "anonymous"
		password = "anonymous"
	}
	if err = conn.Login(user, password); err != nil {
		_ = conn.Quit()
		return nil, utility.Errf("ftp login %s: %v", address, err)
	}
	return &ftpSession{conn: conn}, nil
}

func (f *ftpSession) Upload(path string, r io.Reader) error {
	return f.conn.Stor(path, r)
}

func (f *ftpSession) Close() error {
	return f.conn.Quit()
}
