package manifest

// Template returns a commented manifest skeleton for users to fill in
func Template() string {
	return `name: Name of your application
description: Detailed description of your application
license: Apache-2.0
  # URL preferred, but SPDX identifiers are accepted
sources: [/absolute_path_to/dir_1/, relative_path_to/dir_2/, main_file.py, relative_path/aux_file_1.py]
  # List of application source files and directories. Relative or absolute paths can be used.
sources_main_file: my_main_file.py
  # Optional: Manually specify the name of the main file of the application, located in one of the 'sources' defined.
  # Relative paths from a 'sources' entry, or absolute paths can be used.
data_persistence: false
  # True to include all input and output files of the application in the resulting crate.
  # If false, input and output files won't be included, just referenced. False by default.
inputs: [/abs_path_to/dir_1, rel_path_to/dir_2, file_1, rel_path/file_2]
  # Optional: Manually specify the inputs of the workflow. Relative or absolute paths can be used.
outputs: [/abs_path_to/dir_1, rel_path_to/dir_2, file_1, rel_path/file_2]
  # Optional: Manually specify the outputs of the workflow. Relative or absolute paths can be used.
software:
  # Optional: Manually specify the software dependencies of the application
  - name: Software_1
    version: Software_1 version description string
    url: https://software_1.com/

Authors:
  - name: Author_1 Name
    e-mail: author_1@email.com
    orcid: https://orcid.org/XXXX-XXXX-XXXX-XXXX
    organisation_name: Institution_1 name
    ror: https://ror.org/XXXXXXXXX
      # Find them in ror.org

Agent:
  name: Name
  e-mail: agent@email.com
  orcid: https://orcid.org/XXXX-XXXX-XXXX-XXXX
  organisation_name: Agent Institution name
  ror: https://ror.org/XXXXXXXXX
    # Find them in ror.org
`
}
