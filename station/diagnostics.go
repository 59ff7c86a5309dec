package station

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"stationsim/ocpp/firmware"
	"stationsim/types"
	"stationsim/utility"
)

// handleGetDiagnostics archives the station's log files and uploads them
// to the requested location. Only ftp locations are served; every internal
// failure is reduced to an UploadFailed notification with an empty
// response, the command itself never errors.
func (s *Station) handleGetDiagnostics(request *firmware.GetDiagnosticsRequest) (*firmware.GetDiagnosticsResponse, error) {
	if !s.hasFeatureProfile(types.FeatureProfileFirmwareManagement) {
		return firmware.NewGetDiagnosticsResponse(), nil
	}
	location, err := url.Parse(request.Location)
	if err != nil || !strings.EqualFold(location.Scheme, "ftp") {
		s.warnf("unsupported diagnostics location %q", request.Location)
		s.sendDiagnosticsStatus(firmware.DiagnosticsStatusUploadFailed)
		return firmware.NewGetDiagnosticsResponse(), nil
	}
	fileName := s.id + "_logs.tar.gz"
	archive, err := s.buildDiagnosticsArchive()
	if err != nil {
		s.logger.Error(s.id+": diagnostics archive", err)
		s.sendDiagnosticsStatus(firmware.DiagnosticsStatusUploadFailed)
		return firmware.NewGetDiagnosticsResponse(), nil
	}
	session, err := s.transfer(location)
	if err != nil {
		s.logger.Error(s.id+": diagnostics upload", err)
		s.sendDiagnosticsStatus(firmware.DiagnosticsStatusUploadFailed)
		return firmware.NewGetDiagnosticsResponse(), nil
	}
	defer func() {
		if err = session.Close(); err != nil {
			s.logger.Error(s.id+": diagnostics session close", err)
		}
	}()
	s.sendDiagnosticsStatus(firmware.DiagnosticsStatusUploading)
	if err = session.Upload(path.Join(location.Path, fileName), bytes.NewReader(archive)); err != nil {
		s.logger.Error(s.id+": diagnostics upload", err)
		s.sendDiagnosticsStatus(firmware.DiagnosticsStatusUploadFailed)
		return firmware.NewGetDiagnosticsResponse(), nil
	}
	s.sendDiagnosticsStatus(firmware.DiagnosticsStatusUploaded)
	response := firmware.NewGetDiagnosticsResponse()
	response.FileName = fileName
	return response, nil
}

// buildDiagnosticsArchive packs every .log file of the station's log
// directory into a gzipped tar.
func (s *Station) buildDiagnosticsArchive() ([]byte, error) {
	logFiles, err := filepath.Glob(filepath.Join(s.logDir, "*.log"))
	if err != nil {
		return nil, utility.Errf("listing log files: %v", err)
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, logFile := range logFiles {
		info, err := os.Stat(logFile)
		if err != nil {
			return nil, utility.Errf("stat %s: %v", logFile, err)
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return nil, utility.Errf("tar header %s: %v", logFile, err)
		}
		header.Name = filepath.Base(logFile)
		if err = tw.WriteHeader(header); err != nil {
			return nil, utility.Errf("tar write %s: %v", logFile, err)
		}
		content, err := os.ReadFile(logFile)
		if err != nil {
			return nil, utility.Errf("read %s: %v", logFile, err)
		}
		if _, err = tw.Write(content); err != nil {
			return nil, utility.Errf("tar write %s: %v", logFile, err)
		}
	}
	if err = tw.Close(); err != nil {
		return nil, err
	}
	if err = gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sendDiagnosticsStatus notifies the upload state, best effort.
func (s *Station) sendDiagnosticsStatus(status firmware.DiagnosticsStatus) {
	if _, err := s.sender.Send(firmware.NewDiagnosticsStatusNotificationRequest(status)); err != nil {
		s.logger.Error(fmt.Sprintf("%s: diagnostics status notification %s", s.id, status), err)
	}
}
