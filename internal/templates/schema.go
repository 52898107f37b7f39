package templates

// File is the root of the templates YAML file.
//
//	templates:
//	  - name: default_gfz
//	    label: GFZ Data Services
//	  - name: external_ftp
//	    label: External FTP download
//	    requires_ftp_url: true
type File struct {
	Templates []Entry `yaml:"templates"`
}

// Entry is one template declaration.
type Entry struct {
	Name           string `yaml:"name"`
	Label          string `yaml:"label"`
	RequiresFtpURL bool   `yaml:"requires_ftp_url"`
}
